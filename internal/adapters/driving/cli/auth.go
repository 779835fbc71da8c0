package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize docwatch with Google",
	Long: `Run the OAuth consent flow in a browser and save the resulting token.

The OAuth client file is read from google.credentials_file and the token is
written to google.token_file (defaults under the data directory). Service
account credentials need no authorization; this command is only for OAuth
client files.

docwatch asks for read-only Drive metadata access and permission to send mail.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, _ []string) error {
	if authorize == nil {
		return errors.New("authorization not configured")
	}
	cmd.Println("Opening the browser for Google authorization...")
	if err := authorize(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Authorization saved.")
	return nil
}
