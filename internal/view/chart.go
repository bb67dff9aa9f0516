package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ringer-dashboard/internal/timeline"
)

// Chart geometry.
const (
	chartWidth  = 800
	chartHeight = 200
	padLeft     = 48
	padRight    = 12
	padTop      = 16
	padBottom   = 32
)

// Tick is a labelled position on the horizontal axis.
type Tick struct {
	X     float64
	Label string
}

// Chart is a rendered ON/OFF step chart ready for the SVG template.
type Chart struct {
	Width, Height int
	Path          string
	Ticks         []Tick
	YOn, YOff     float64
	Left, Right   float64
	Baseline      float64
	Empty         bool
}

// BuildChart lays out points as a step-after line: each state is held
// horizontally until the next point. The last state is extended by its own
// duration when one is known. Points without a valid position are skipped.
func BuildChart(points []timeline.ChartPoint, axis timeline.Axis, loc *time.Location) Chart {
	c := Chart{
		Width:    chartWidth,
		Height:   chartHeight,
		YOn:      padTop + 24,
		YOff:     chartHeight - padBottom - 24,
		Left:     padLeft,
		Right:    chartWidth - padRight,
		Baseline: chartHeight - padBottom,
	}
	if loc == nil {
		loc = time.UTC
	}

	minX, maxX, ok := timeline.Extent(points, axis)
	if !ok {
		c.Empty = true
		return c
	}
	valid := make([]timeline.ChartPoint, 0, len(points))
	for _, p := range points {
		if p.Valid {
			valid = append(valid, p)
		}
	}
	span := maxX - minX
	if span <= 0 {
		span = 1
	}
	scale := func(x float64) float64 {
		return c.Left + (x-minX)/span*(c.Right-c.Left)
	}
	level := func(y int) float64 {
		if y == 1 {
			return c.YOn
		}
		return c.YOff
	}

	var b strings.Builder
	fmt.Fprintf(&b, "M%s %s", num(scale(valid[0].X)), num(level(valid[0].Y)))
	for _, p := range valid[1:] {
		fmt.Fprintf(&b, " H%s V%s", num(scale(p.X)), num(level(p.Y)))
	}
	fmt.Fprintf(&b, " H%s", num(scale(maxX)))
	c.Path = b.String()

	c.Ticks = []Tick{
		{X: scale(minX), Label: tickLabel(minX, minX, axis, loc)},
		{X: scale(maxX), Label: tickLabel(maxX, minX, axis, loc)},
	}
	return c
}

func tickLabel(x, origin float64, axis timeline.Axis, loc *time.Location) string {
	if axis == timeline.AxisDuration {
		label, _ := timeline.FormatGap(time.Duration(x-origin) * time.Minute)
		return label
	}
	return time.UnixMilli(int64(x)).In(loc).Format("02/01 15:04")
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
