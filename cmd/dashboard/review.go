package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	custom_errors "github-repo-dashboard/internal/errors"
)

// maxSnippetSize bounds what is sent for review.
const maxSnippetSize = 256 << 10

func newReviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "review [FILE|-]",
		Short: "Ask the AI reviewer about a piece of code",
		Long:  "Sends the contents of FILE, or standard input when FILE is - or missing, for review and prints the Markdown answer.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}

			snippet, err := io.ReadAll(io.LimitReader(src, maxSnippetSize+1))
			if err != nil {
				return err
			}
			if len(snippet) > maxSnippetSize {
				return fmt.Errorf("snippet is larger than %d KB", maxSnippetSize>>10)
			}

			review, err := a.client.Review(cmd.Context(), string(snippet))
			if errors.Is(err, custom_errors.ErrReviewerDisabled) {
				return errors.New("code review is not enabled on this server")
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), review)
			return nil
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Print the URL that starts the GitHub sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open this URL in a browser and authorize the application:")
			fmt.Fprintf(out, "\n  %s\n\n", a.client.LoginURL())
			fmt.Fprintln(out, "Then export the issued access token as GITHUB_TOKEN or pass it with --token.")
			return nil
		},
	}
}
