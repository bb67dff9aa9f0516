package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ringer-dashboard/internal/upstream"
)

var passcodePattern = regexp.MustCompile(`^\d{6}$`)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var identifier, passcode string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the account",
		Example: `  ringerctl login --identifier me@example.com --passcode 123456
  ringerctl login --identifier +15550100 --passcode 123456 --api-url https://api.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier = strings.TrimSpace(identifier)
			if !passcodePattern.MatchString(passcode) {
				return newCodedError(errInvalidPasscode, "passcode must be exactly 6 digits", nil)
			}
			apiURL, err := opts.resolveAPIURL(nil)
			if err != nil {
				return err
			}

			user, err := opts.client(apiURL).Login(cmd.Context(), identifier, passcode)
			if err != nil {
				if upstream.IsUnauthorized(err) {
					return newCodedError(errLoginFailed, "invalid email/phone or passcode", nil)
				}
				return newCodedError(errLoginFailed, "status API unavailable", err)
			}

			id := identity{
				UserID:     user.ID,
				Identifier: identifier,
				APIURL:     apiURL,
				LoggedInAt: time.Now().UTC(),
			}
			if err := saveIdentity(opts.identityPath(), id); err != nil {
				return fmt.Errorf("save identity: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (user %s)\n", identifier, user.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&identifier, "identifier", "", "Email address or phone number")
	cmd.Flags().StringVar(&passcode, "passcode", "", "6-digit passcode")
	_ = cmd.MarkFlagRequired("identifier")
	_ = cmd.MarkFlagRequired("passcode")

	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			existed, err := removeIdentity(opts.identityPath())
			if err != nil {
				return fmt.Errorf("remove identity: %w", err)
			}
			msg := "Logged out"
			if !existed {
				msg = "Not logged in"
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := loadIdentity(opts.identityPath())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Identifier: %s\n", id.Identifier)
			fmt.Fprintf(out, "User ID:    %s\n", id.UserID)
			fmt.Fprintf(out, "API URL:    %s\n", id.APIURL)
			_, err = fmt.Fprintf(out, "Logged in:  %s\n", id.LoggedInAt.Local().Format("2006-01-02 15:04:05"))
			return err
		},
	}
}
