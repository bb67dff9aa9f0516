package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"

	"ringer-dashboard/internal/dashboard"
	"ringer-dashboard/internal/timeline"
)

const clearScreen = "\033[H\033[2J"

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func formatMinutes(m int) string {
	label, _ := timeline.FormatGap(time.Duration(m) * time.Minute)
	return label
}

func renderSummary(w io.Writer, s dashboard.Summary) error {
	_, err := fmt.Fprintf(w, "%d events, %d connections. Connected %s, disconnected %s.\n",
		s.Events, s.Connections, formatMinutes(s.ConnectedMinutes), formatMinutes(s.DisconnectedMinutes))
	return err
}

func renderTable(w io.Writer, v dashboard.View, pal palette) error {
	if len(v.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No status changes in this range.")
		return err
	}

	// Colour is applied after alignment so escape codes do not skew the columns.
	var aligned bytes.Buffer
	tw := tabwriter.NewWriter(&aligned, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTIME\tSTATUS\tDURATION\tLOCATION")
	for _, e := range v.Entries {
		location := e.Location
		if location == "" {
			location = "-"
		} else if e.LocationIsManual {
			location += " (manual)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Date, e.Time, e.StatusLabel, e.DurationLabel, location)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lines := strings.SplitAfter(aligned.String(), "\n")
	for i, line := range lines {
		switch {
		case line == "":
			continue
		case i == 0:
			line = pal.header.Sprint(strings.TrimSuffix(line, "\n")) + "\n"
		case i-1 < len(v.Entries):
			line = styleRow(line, v.Entries[i-1], pal)
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return renderSummary(w, v.Summary)
}

// styleRow colours the status and duration cells of one aligned table row.
func styleRow(line string, e timeline.DurationEntry, pal palette) string {
	at := strings.Index(line, e.StatusLabel)
	if at < 0 {
		return line
	}
	head, rest := line[:at], line[at+len(e.StatusLabel):]
	if d := strings.Index(rest, e.DurationLabel); d >= 0 && e.DurationLabel != "" {
		rest = rest[:d] + pal.duration(e.DurationLabel) + rest[d+len(e.DurationLabel):]
	}
	return head + pal.status(e.StatusLabel) + rest
}

// renderChart draws the ON/OFF history as two rows of a step chart.
func renderChart(w io.Writer, v dashboard.View, axis timeline.Axis, loc *time.Location, width int, pal palette) error {
	points := timeline.ChartPoints(v.Entries, axis)
	lo, hi, ok := timeline.Extent(points, axis)
	if !ok {
		_, err := fmt.Fprintln(w, "Nothing to chart in this range.")
		return err
	}
	if width < 10 {
		width = 10
	}
	span := hi - lo

	on := []rune(strings.Repeat(" ", width))
	off := []rune(strings.Repeat(" ", width))
	for col := 0; col < width; col++ {
		x := lo
		if span > 0 {
			x = lo + span*(float64(col)+0.5)/float64(width)
		}
		state := -1
		for _, p := range points {
			if !p.Valid {
				continue
			}
			if p.X > x {
				break
			}
			state = p.Y
		}
		switch state {
		case 1:
			on[col] = '━'
		case 0:
			off[col] = '━'
		}
	}

	left := axisLabel(lo, lo, axis, loc)
	right := axisLabel(hi, lo, axis, loc)
	gap := width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}

	fmt.Fprintf(w, "ON  │%s\n", pal.on.Sprint(string(on)))
	fmt.Fprintf(w, "OFF │%s\n", pal.off.Sprint(string(off)))
	fmt.Fprintf(w, "    └%s\n", strings.Repeat("─", width))
	fmt.Fprintf(w, "     %s%s%s\n", left, strings.Repeat(" ", gap), right)
	return renderSummary(w, v.Summary)
}

func axisLabel(x, origin float64, axis timeline.Axis, loc *time.Location) string {
	if axis == timeline.AxisDuration {
		return formatMinutes(int(x - origin))
	}
	return time.UnixMilli(int64(x)).In(loc).Format("02/01 15:04")
}
