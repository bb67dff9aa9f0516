// Package cli implements ringerctl, the terminal dashboard.
package cli

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ringer-dashboard/config"
	"ringer-dashboard/internal/upstream"
)

type rootOptions struct {
	apiURL       string
	identityFile string
	timezone     string
	hour12       bool
	timeout      time.Duration
}

// resolveAPIURL picks the flag, then RINGER_API_URL, then the URL saved at login.
func (o *rootOptions) resolveAPIURL(id *identity) (string, error) {
	if v := strings.TrimSpace(o.apiURL); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(os.Getenv("RINGER_API_URL")); v != "" {
		return v, nil
	}
	if id != nil && id.APIURL != "" {
		return id.APIURL, nil
	}
	return "", newCodedError(errAPIURLRequired, "pass --api-url or set RINGER_API_URL", nil)
}

func (o *rootOptions) identityPath() string {
	if o.identityFile != "" {
		return o.identityFile
	}
	return defaultIdentityFile()
}

func (o *rootOptions) location() (*time.Location, error) {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, newCodedError(errInvalidTimezone, o.timezone, err)
	}
	return loc, nil
}

func (o *rootOptions) client(apiURL string) *upstream.Client {
	return upstream.NewClient(config.UpstreamConfig{BaseURL: apiURL, Timeout: o.timeout}, nil)
}

// NewRootCmd creates the root command for ringerctl.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ringerctl",
		Short: "Device plug status from the terminal",
		Long: `Terminal dashboard for a device's plug-in/plug-out history.

Every status change is listed with how long the device stayed in that state;
the most recent one keeps counting up to now.

Common subcommands:
  login     Sign in with email/phone and 6-digit passcode
  status    Show the status table or ON/OFF chart
  map       Show map links for a location
  whoami    Show the signed-in account
  logout    Forget the signed-in account`,
		Example: `  ringerctl login --identifier me@example.com --passcode 123456 --api-url https://api.example.com
  ringerctl status --start 2024-03-01
  ringerctl status --graph --axis duration
  ringerctl status --watch --refresh 30s`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "Status API base URL (default $RINGER_API_URL or the URL used at login)")
	root.PersistentFlags().StringVar(&opts.identityFile, "identity", "", "Identity file (default $RINGER_IDENTITY or <config dir>/ringer/identity.yaml)")
	root.PersistentFlags().StringVar(&opts.timezone, "timezone", "Local", "Timezone for dates and times")
	root.PersistentFlags().BoolVar(&opts.hour12, "hour12", false, "Use a 12-hour clock")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Status API request timeout")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newStatusCmd(opts),
		newMapCmd(),
	)

	return root
}
