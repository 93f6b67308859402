package visualization

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/psm/model"
)

// LikelihoodPageFile is the name of the HTML page written by HTMLChartSink.
const LikelihoodPageFile = "scene_likelihoods.html"

// HTMLChartSink rewrites an interactive bar chart page after every cycle.
type HTMLChartSink struct {
	mu        sync.Mutex
	outputDir string
	labels    []string
	cycle     int
}

// NewHTMLChartSink returns a sink writing into outputDir, which is created if needed.
func NewHTMLChartSink(outputDir string) (*HTMLChartSink, error) {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "cannot create plot output dir %q", outputDir)
	}
	return &HTMLChartSink{outputDir: outputDir}, nil
}

// SetScenes fixes the chart's x axis.
func (hs *HTMLChartSink) SetScenes(scenes []string) error {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.labels = append([]string(nil), scenes...)
	return nil
}

// Path returns the file the page is written to.
func (hs *HTMLChartSink) Path() string {
	return filepath.Join(hs.outputDir, LikelihoodPageFile)
}

// Publish implements engine.ResultSink.
func (hs *HTMLChartSink) Publish(ctx context.Context, results []model.SceneIdentifier) (err error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.cycle++

	ordered := labeledResults(hs.labels, results)
	x := lo.Map(ordered, func(r model.SceneIdentifier, _ int) string { return r.Description })
	likelihoods := lo.Map(ordered, func(r model.SceneIdentifier, _ int) opts.BarData {
		return opts.BarData{Name: r.Description, Value: r.Likelihood}
	})
	priors := lo.Map(ordered, func(r model.SceneIdentifier, _ int) opts.BarData {
		return opts.BarData{Name: r.Description, Value: r.Prior}
	})

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Scene likelihoods", Subtitle: "cycle " + strconv.Itoa(hs.cycle)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "probability", Min: 0, Max: 1}),
	)
	bar.SetXAxis(x).
		AddSeries("likelihood", likelihoods,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		).
		AddSeries("prior", priors)

	page := components.NewPage()
	page.SetPageTitle("psm")
	page.AddCharts(bar)

	//nolint:gosec
	f, err := os.Create(hs.Path())
	if err != nil {
		return errors.Wrap(err, "cannot create likelihood page")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return page.Render(f)
}
