package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ringer-dashboard/config"
	"ringer-dashboard/internal/geo"
)

func newMapCmd() *cobra.Command {
	var offline bool
	var geocoderURL string

	cmd := &cobra.Command{
		Use:   "map <location>",
		Short: "Show map links for a location",
		Example: `  ringerctl map "Alexanderplatz, Berlin"
  ringerctl map --offline "Home"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location := strings.TrimSpace(strings.Join(args, " "))
			links := geo.NewGeocoder(config.GeocoderConfig{
				Enabled:   !offline,
				BaseURL:   geocoderURL,
				UserAgent: "ringerctl",
			}).Lookup(cmd.Context(), location)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Location: %s\n", links.Location)
			if links.Found {
				fmt.Fprintf(out, "Position: %s, %s\n", links.Lat, links.Lon)
			} else {
				fmt.Fprintln(out, "Position: unknown (world view)")
			}
			fmt.Fprintf(out, "Map:      %s\n", links.EmbedURL)
			_, err := fmt.Fprintf(out, "Search:   %s\n", links.SearchURL)
			return err
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip geocoding and print the world view links")
	cmd.Flags().StringVar(&geocoderURL, "geocoder-url", "https://nominatim.openstreetmap.org", "Nominatim-compatible search service")

	return cmd
}
