// Package visualization renders scene likelihoods and learned scene layouts.
package visualization

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/aybabtme/uniplot/barchart"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"go.viam.com/psm/model"
)

// consoleBarWidth is the number of characters of a bar at likelihood 1.
const consoleBarWidth = 40

var headline = color.New(color.FgGreen, color.Bold)

// ConsoleSink prints the scene list as a table after every cycle, followed by the most likely
// scene and a bar per scene.
type ConsoleSink struct {
	mu    sync.Mutex
	w     io.Writer
	cycle int
}

// NewConsoleSink returns a sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Publish renders results in the order given.
func (cs *ConsoleSink) Publish(ctx context.Context, results []model.SceneIdentifier) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.cycle++

	t := table.NewWriter()
	t.SetTitle("cycle %d", cs.cycle)
	t.AppendHeader(table.Row{"#", "Scene", "Type", "Likelihood", "Prior"})
	for i, r := range results {
		t.AppendRow(table.Row{
			i + 1,
			r.Description,
			r.Type,
			fmt.Sprintf("%.4f", r.Likelihood),
			fmt.Sprintf("%.4f", r.Prior),
		})
	}
	if _, err := fmt.Fprintln(cs.w, t.Render()); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	best := lo.MaxBy(results, func(a, b model.SceneIdentifier) bool { return a.Likelihood > b.Likelihood })
	if _, err := headline.Fprintf(cs.w, "most likely: %s (%.4f)\n", best.Description, best.Likelihood); err != nil {
		return err
	}
	return likelihoodBars(cs.w, results)
}

// likelihoodBars draws one bar per result, labeled with its scene and its likelihood in percent.
// The chart needs at least two bars.
func likelihoodBars(w io.Writer, results []model.SceneIdentifier) error {
	if len(results) < 2 {
		return nil
	}
	xys := make([][2]int, 0, len(results))
	for i, r := range results {
		xys = append(xys, [2]int{i, int(math.Round(r.Likelihood * 100))})
	}
	absolute := func(_, _, value float64) float64 {
		return value * consoleBarWidth / 100
	}
	label := func(x float64) string {
		return results[int(math.Round(x))].Description
	}
	percent := func(y float64) string {
		return fmt.Sprintf("%.0f%%", y)
	}
	return barchart.Fprintf(w, barchart.BarChartXYs(xys), len(results), absolute, label, percent)
}
