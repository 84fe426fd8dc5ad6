package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxagent/internal/google"
)

func newGoogleAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "google-auth",
		Short: "Authorize access to Google Calendar",
		Long: `Authorize inboxagent to use Google Calendar for the google calendar backend.

Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET. Open the printed URL,
grant access and paste the authorization code. The token is cached and
refreshed automatically; GOOGLE_ACCESS_TOKEN takes precedence when set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoogleAuth(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runGoogleAuth(ctx context.Context, in io.Reader, out io.Writer) error {
	url, err := google.AuthURL()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Visit this URL to authorize calendar access:\n\n  %s\n\n", url)
	fmt.Fprint(out, "Authorization code: ")
	code, err := readLine(bufio.NewReader(in))
	if err != nil {
		return fmt.Errorf("no authorization code given: %w", err)
	}
	if code == "" {
		return fmt.Errorf("no authorization code given")
	}

	if err := google.SaveToken(ctx, code); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", google.TokenFile())
	return nil
}
