package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/google/go-github/v62/github"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github-repo-dashboard/internal/model"
)

func newRepoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repo ID",
		Short: "Show a repository and its languages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireToken(); err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid repository id %q", args[0])
			}

			var (
				repo      *github.Repository
				languages model.LanguageBreakdown
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				repo, err = a.client.Repository(ctx, id)
				return err
			})
			g.Go(func() error {
				var err error
				languages, err = a.client.Languages(ctx, id)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			writeRepoDetail(cmd.OutOrStdout(), repo, languages)
			return nil
		},
	}
}

func writeRepoDetail(w io.Writer, repo *github.Repository, languages model.LanguageBreakdown) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", repo.GetFullName())
	if d := repo.GetDescription(); d != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", d)
	}
	fmt.Fprintf(tw, "Visibility:\t%s\n", repo.GetVisibility())
	fmt.Fprintf(tw, "Default branch:\t%s\n", repo.GetDefaultBranch())
	fmt.Fprintf(tw, "Stars:\t%d\n", repo.GetStargazersCount())
	fmt.Fprintf(tw, "Forks:\t%d\n", repo.GetForksCount())
	fmt.Fprintf(tw, "Open issues:\t%d\n", repo.GetOpenIssuesCount())
	fmt.Fprintf(tw, "Size:\t%s\n", formatSize(repo.GetSize()))
	fmt.Fprintf(tw, "Created:\t%s\n", repo.GetCreatedAt().Format("2006-01-02 15:04"))
	fmt.Fprintf(tw, "Updated:\t%s\n", repo.GetUpdatedAt().Format("2006-01-02 15:04"))
	fmt.Fprintf(tw, "URL:\t%s\n", repo.GetHTMLURL())
	fmt.Fprintf(tw, "Clone:\t%s\n", repo.GetCloneURL())
	_ = tw.Flush()

	fmt.Fprintln(w, "\nLanguages:")
	if len(languages.Percentages) == 0 {
		fmt.Fprintln(w, "  none detected")
		return
	}

	names := make([]string, 0, len(languages.Percentages))
	for name := range languages.Percentages {
		names = append(names, name)
	}
	slices.SortFunc(names, func(x, y string) int {
		if c := cmp.Compare(languages.Percentages[y], languages.Percentages[x]); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%.2f%%\t\n", name, languages.Percentages[name])
	}
	_ = tw.Flush()
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		req       model.CreateRepositoryRequest
		noForking bool
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireToken(); err != nil {
				return err
			}
			req.Name = args[0]
			visibility, err := model.ParseVisibility(req.Visibility)
			if err != nil {
				return err
			}
			req.Visibility = string(visibility)
			if noForking {
				allow := false
				req.AllowForking = &allow
			}

			repo, err := a.client.CreateRepository(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", repo.GetFullName(), repo.GetHTMLURL())
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "repository description")
	cmd.Flags().StringVar(&req.Visibility, "visibility", string(model.VisibilityPublic), "public or private")
	cmd.Flags().BoolVar(&req.AutoInit, "init", false, "create an initial commit with a README")
	cmd.Flags().BoolVar(&noForking, "no-forking", false, "disallow forking")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in GitHub user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireToken(); err != nil {
				return err
			}
			user, err := a.client.User(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.GetLogin(), user.GetHTMLURL())
			return nil
		},
	}
}
