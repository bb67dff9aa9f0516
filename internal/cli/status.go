package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"ringer-dashboard/internal/dashboard"
	"ringer-dashboard/internal/timeline"
	"ringer-dashboard/internal/upstream"
)

const defaultLookback = 7 * 24 * time.Hour

type statusOptions struct {
	start, end string
	axis       string
	graph      bool
	watch      bool
	refresh    time.Duration
	asJSON     bool
	width      int
	noColor    bool
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var so statusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status table or ON/OFF chart",
		Long: `Lists every plug-in/plug-out change in the range with the time spent in
that state. The last change is measured up to now. Without --start/--end the
last seven days are shown.`,
		Example: `  ringerctl status
  ringerctl status --start 2024-03-01 --end 2024-03-07
  ringerctl status --graph --axis duration
  ringerctl status --watch --refresh 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := loadIdentity(opts.identityPath())
			if err != nil {
				return err
			}
			apiURL, err := opts.resolveAPIURL(&id)
			if err != nil {
				return err
			}
			loc, err := opts.location()
			if err != nil {
				return err
			}

			var axis timeline.Axis
			switch so.axis {
			case "", string(timeline.AxisTime):
				axis = timeline.AxisTime
			case string(timeline.AxisDuration):
				axis = timeline.AxisDuration
			default:
				return newCodedError(errInvalidAxis, fmt.Sprintf("unknown axis %q (use time or duration)", so.axis), nil)
			}

			svc := dashboard.NewService(opts.client(apiURL), timeline.NewFormatter(loc, opts.hour12), defaultLookback)
			rng, err := svc.ParseRange(so.start, so.end, time.Now())
			if err != nil {
				return newCodedError(errInvalidRange, "use YYYY-MM-DD, YYYY-MM-DDTHH:MM or RFC3339 with start before end", err)
			}

			render := func(w io.Writer, v dashboard.View) error {
				pal := paletteFor(w, so.noColor)
				switch {
				case so.asJSON:
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(v.Entries)
				case so.graph:
					return renderChart(w, v, axis, loc, so.width, pal)
				default:
					return renderTable(w, v, pal)
				}
			}

			out := cmd.OutOrStdout()
			if !so.watch {
				v, err := svc.Load(cmd.Context(), id.UserID, rng, time.Now())
				if err != nil {
					return fetchError(err)
				}
				return render(out, v)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchStatus(ctx, svc, id.UserID, so, rng, out, render)
		},
	}

	cmd.Flags().StringVar(&so.start, "start", "", "Range start (YYYY-MM-DD, YYYY-MM-DDTHH:MM or RFC3339)")
	cmd.Flags().StringVar(&so.end, "end", "", "Range end; a bare date includes the whole day (default now)")
	cmd.Flags().BoolVar(&so.graph, "graph", false, "Draw an ON/OFF chart instead of the table")
	cmd.Flags().StringVar(&so.axis, "axis", "time", "Chart axis: time or duration")
	cmd.Flags().BoolVar(&so.watch, "watch", false, "Keep the view live until interrupted")
	cmd.Flags().DurationVar(&so.refresh, "refresh", 30*time.Second, "Re-fetch interval with --watch (0 disables)")
	cmd.Flags().BoolVar(&so.asJSON, "json", false, "Print entries as JSON")
	cmd.Flags().IntVar(&so.width, "width", 60, "Chart width in columns")
	cmd.Flags().BoolVar(&so.noColor, "no-color", false, "Disable coloured output")

	return cmd
}

// watchStatus redraws the view every second and re-fetches on the refresh
// interval until ctx is cancelled.
func watchStatus(ctx context.Context, svc *dashboard.Service, userID string, so statusOptions, initial dashboard.Range, out io.Writer, render func(io.Writer, dashboard.View) error) error {
	redraw := isTerminal(out)
	refresher := dashboard.NewRefresher(svc, userID, dashboard.RefresherOptions{
		AutoRefresh: so.refresh,
		RangeFor: func(now time.Time) dashboard.Range {
			rng, err := svc.ParseRange(so.start, so.end, now)
			if err != nil {
				return initial
			}
			return rng
		},
	}, func(f dashboard.Frame) {
		if redraw {
			fmt.Fprint(out, clearScreen)
		}
		if err := render(out, f.View); err != nil {
			fmt.Fprintf(out, "render failed: %v\n", err)
		}
		if f.Err != nil {
			fmt.Fprintf(out, "last refresh failed: %v\n", f.Err)
		}
		if !redraw {
			fmt.Fprintln(out)
		}
	})

	err := refresher.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func fetchError(err error) error {
	if upstream.IsUnauthorized(err) {
		return newCodedError(errNotLoggedIn, "status API rejected the saved account; run 'ringerctl login'", err)
	}
	return newCodedError(errFetchFailed, "could not load status history", err)
}
