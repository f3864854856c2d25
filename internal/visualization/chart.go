// Package visualization renders training runs as charts.
package visualization

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/nvandessel/boxes/internal/constants"
	"github.com/nvandessel/boxes/internal/store"
)

// Format specifies the output format for a run chart.
type Format string

const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatHTML, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (want html or json)", s)
	}
}

// Render writes the run's batches to w in the given format.
func Render(w io.Writer, run store.Run, batches []store.Batch, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Run     store.Run     `json:"run"`
			Batches []store.Batch `json:"batches"`
		}{run, batches})
	case FormatHTML, "":
		page := components.NewPage()
		page.PageTitle = "boxes " + run.ID
		page.AddCharts(lineCharts(run, batches)...)
		return page.Render(w)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func lineCharts(run store.Run, batches []store.Batch) []components.Charter {
	xAxis := make([]string, len(batches))
	for i, b := range batches {
		xAxis[i] = fmt.Sprintf("%d", b.Start)
	}

	if run.Kind == constants.RunBallTrack.String() {
		perf := newLine("Ball on track", fmt.Sprintf("run %s, seed %d", run.ID, run.Seed), xAxis)
		perf.AddSeries("mean reward", series(batches, func(b store.Batch) float64 { return b.MeanReward }))
		perf.AddSeries("mean |error|", series(batches, func(b store.Batch) float64 { return b.MeanAbsError }))
		return []components.Charter{perf, underflowLine(batches, xAxis)}
	}

	outcomes := newLine("Tic-tac-toe outcomes (%)", fmt.Sprintf("run %s, seed %d", run.ID, run.Seed), xAxis)
	outcomes.AddSeries("first wins", series(batches, percent(func(b store.Batch) int { return b.FirstWins })))
	outcomes.AddSeries("second wins", series(batches, percent(func(b store.Batch) int { return b.SecondWins })))
	outcomes.AddSeries("draws", series(batches, percent(func(b store.Batch) int { return b.Draws })))
	return []components.Charter{outcomes, underflowLine(batches, xAxis)}
}

func newLine(title, subtitle string, xAxis []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
	)
	line.SetXAxis(xAxis)
	return line
}

func underflowLine(batches []store.Batch, xAxis []string) *charts.Line {
	line := newLine("Underflows per batch", "", xAxis)
	line.AddSeries("underflows", series(batches, func(b store.Batch) float64 { return float64(b.Underflows) }))
	return line
}

func series(batches []store.Batch, value func(store.Batch) float64) []opts.LineData {
	items := make([]opts.LineData, 0, len(batches))
	for _, b := range batches {
		items = append(items, opts.LineData{Value: value(b)})
	}
	return items
}

func percent(count func(store.Batch) int) func(store.Batch) float64 {
	return func(b store.Batch) float64 {
		if b.Episodes == 0 {
			return 0
		}
		return 100 * float64(count(b)) / float64(b.Episodes)
	}
}
