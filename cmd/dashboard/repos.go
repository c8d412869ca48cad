package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	custom_errors "github-repo-dashboard/internal/errors"
	"github-repo-dashboard/internal/model"
	"github-repo-dashboard/internal/settings"
	"github-repo-dashboard/internal/syncer"
)

func newReposCmd(a *app) *cobra.Command {
	var (
		pages  int
		all    bool
		search string
		sortBy string
	)

	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List your repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireToken(); err != nil {
				return err
			}
			if pages < 1 && !all {
				return fmt.Errorf("--pages must be at least 1")
			}

			// --sort applies to this listing only; the saved order stays as is.
			prefs := settings.NewStore(a.prefs.Snapshot())
			s := syncer.New(a.client, prefs, a.cfg.GithubToken, a.logger)
			if sortBy != "" {
				order, err := model.ParseSortOrder(sortBy)
				if err != nil {
					return err
				}
				s.SetSortOrder(order)
			}
			if err := loadPages(cmd.Context(), s, pages, all); err != nil {
				return err
			}
			s.SetSearchTerm(search)

			writeRepoTable(cmd.OutOrStdout(), s.View())
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().BoolVar(&all, "all", false, "load every page")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only show repositories whose name, visibility or language contains this")
	cmd.Flags().StringVar(&sortBy, "sort", "", "name, created or updated (defaults to the saved preference)")
	return cmd
}

// loadPages pulls up to n more pages, or every page when all is set.
func loadPages(ctx context.Context, s *syncer.Syncer, n int, all bool) error {
	for i := 0; all || i < n; i++ {
		if s.View().LastPage {
			return nil
		}
		if err := s.LoadNext(ctx); err != nil {
			return err
		}
	}
	return nil
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Page through your repositories interactively",
		Long: `Page through your repositories interactively. Commands:

  n            load the next page
  /term        search for term (a bare / clears the search)
  s ORDER      sort by name, created or updated
  t            toggle visibility and language columns
  z            toggle the size column
  r            refresh from the first page
  q            quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireToken(); err != nil {
				return err
			}
			s := syncer.New(a.client, a.prefs, a.cfg.GithubToken, a.logger)
			return browse(cmd.Context(), a, s, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func browse(ctx context.Context, a *app, s *syncer.Syncer, in io.Reader, out io.Writer) error {
	if err := s.LoadNext(ctx); err != nil {
		return err
	}
	writeRepoTable(out, s.View())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		var err error
		switch {
		case line == "":
			continue
		case line == "q":
			return nil
		case line == "n":
			if s.View().LastPage {
				fmt.Fprintln(out, "No more repositories.")
				continue
			}
			err = s.LoadNext(ctx)
		case line == "r":
			err = s.Refresh(ctx)
		case line == "t":
			a.prefs.ToggleTags()
			err = a.savePrefs()
		case line == "z":
			a.prefs.ToggleRepoSize()
			err = a.savePrefs()
		case strings.HasPrefix(line, "/"):
			s.SetSearchTerm(strings.TrimSpace(line[1:]))
		case strings.HasPrefix(line, "s "):
			var order model.SortOrder
			order, err = model.ParseSortOrder(line[2:])
			if err == nil {
				s.SetSortOrder(order)
				err = a.savePrefs()
			}
		default:
			fmt.Fprintf(out, "Unknown command %q\n", line)
			continue
		}

		if err != nil {
			if errors.Is(err, custom_errors.ErrUnauthorized) {
				return err
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		writeRepoTable(out, s.View())
	}
}

// isTerminalFD is overridable in tests.
var isTerminalFD = term.IsTerminal

const (
	headerLight = "\x1b[1;34m"
	headerDark  = "\x1b[1;96m"
	colorReset  = "\x1b[0m"
)

func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminalFD(int(f.Fd()))
}

func writeRepoTable(w io.Writer, v syncer.View) {
	prefs := v.Preferences

	var table bytes.Buffer
	tw := tabwriter.NewWriter(&table, 0, 0, 2, ' ', 0)
	header := []string{"NAME"}
	if prefs.ShowTags {
		header = append(header, "VISIBILITY", "LANGUAGE")
	}
	if prefs.ShowRepoSize {
		header = append(header, "SIZE")
	}
	header = append(header, "UPDATED")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range v.Repositories {
		row := []string{r.Name}
		if prefs.ShowTags {
			visibility := string(r.Visibility)
			if visibility == "" {
				visibility = "-"
			}
			row = append(row, visibility, r.Language)
		}
		if prefs.ShowRepoSize {
			row = append(row, formatSize(r.Size))
		}
		row = append(row, r.UpdatedAt.Format("2006-01-02"))
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()

	// Color is applied after alignment so escape codes do not count as width.
	head, rest, _ := strings.Cut(table.String(), "\n")
	if useColor(w) {
		style := headerLight
		if prefs.DarkMode {
			style = headerDark
		}
		head = style + head + colorReset
	}
	fmt.Fprintln(w, head)
	fmt.Fprint(w, rest)

	fmt.Fprintf(w, "\n%d of %d repositories, %d page(s) loaded, sorted by %s", len(v.Repositories), v.Total, v.PagesFetched, prefs.SortOrder)
	if v.SearchTerm != "" {
		fmt.Fprintf(w, ", matching %q", v.SearchTerm)
	}
	if v.LastPage {
		fmt.Fprintln(w, ". End of list.")
	} else {
		fmt.Fprintln(w, ". More available.")
	}
}

// formatSize renders a size reported by GitHub in kilobytes.
func formatSize(kb int) string {
	if kb < 1024 {
		return fmt.Sprintf("%d KB", kb)
	}
	return fmt.Sprintf("%.1f MB", float64(kb)/1024)
}
