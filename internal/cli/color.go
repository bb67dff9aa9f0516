package cli

import (
	"io"

	"github.com/fatih/color"

	"ringer-dashboard/internal/timeline"
)

// palette styles the status words and chart rows. A disabled palette prints
// plain text.
type palette struct {
	on     *color.Color
	off    *color.Color
	notice *color.Color
	header *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		on:     color.New(color.FgGreen, color.Bold),
		off:    color.New(color.FgRed),
		notice: color.New(color.FgYellow),
		header: color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.on, p.off, p.notice, p.header} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// paletteFor colours only real terminals, and never when NO_COLOR or
// --no-color asks for plain output.
func paletteFor(w io.Writer, noColor bool) palette {
	return newPalette(!noColor && !color.NoColor && isTerminal(w))
}

func (p palette) status(label string) string {
	switch label {
	case timeline.StatusConnected:
		return p.on.Sprint(label)
	case timeline.StatusDisconnected:
		return p.off.Sprint(label)
	default:
		return label
	}
}

func (p palette) duration(label string) string {
	switch label {
	case timeline.LabelNotApplicable, timeline.LabelInvalidDate, timeline.LabelError:
		return p.notice.Sprint(label)
	default:
		return label
	}
}
