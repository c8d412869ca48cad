package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github-repo-dashboard/internal/model"
)

func newPrefsCmd(a *app) *cobra.Command {
	var (
		sortBy   string
		showTags bool
		showSize bool
		dark     bool
	)

	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change display preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			changed := false

			if flags.Changed("sort") {
				order, err := model.ParseSortOrder(sortBy)
				if err != nil {
					return err
				}
				a.prefs.SetSortOrder(order)
				changed = true
			}
			if flags.Changed("tags") {
				a.prefs.SetShowTags(showTags)
				changed = true
			}
			if flags.Changed("size") {
				a.prefs.SetShowRepoSize(showSize)
				changed = true
			}
			if flags.Changed("dark") {
				a.prefs.SetDarkMode(dark)
				changed = true
			}

			if changed {
				if err := a.savePrefs(); err != nil {
					return err
				}
			}

			data, err := yaml.Marshal(a.prefs.Snapshot())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", a.cfg.PreferencesPath, data)
			return nil
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "", "default sort order: name, created or updated")
	cmd.Flags().BoolVar(&showTags, "tags", true, "show visibility and language columns")
	cmd.Flags().BoolVar(&showSize, "size", true, "show the size column")
	cmd.Flags().BoolVar(&dark, "dark", false, "use the dark theme")
	return cmd
}
