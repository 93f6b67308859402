package visualization

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"go.viam.com/psm/logging"
	"go.viam.com/psm/model"
)

// LikelihoodChartFile is the name of the PNG written by BarChartSink.
const LikelihoodChartFile = "scene_likelihoods.png"

// labeledResults orders results by labels. Scenes missing from results are reported with zero
// values; results for unlabeled scenes are appended after the labeled ones.
func labeledResults(labels []string, results []model.SceneIdentifier) []model.SceneIdentifier {
	byScene := lo.SliceToMap(results, func(r model.SceneIdentifier) (string, model.SceneIdentifier) {
		return r.Description, r
	})
	ordered := make([]model.SceneIdentifier, 0, len(labels)+len(results))
	for _, label := range labels {
		r, ok := byScene[label]
		if !ok {
			r = model.SceneIdentifier{Description: label}
		}
		ordered = append(ordered, r)
	}
	for _, r := range results {
		if !lo.Contains(labels, r.Description) {
			ordered = append(ordered, r)
		}
	}
	return ordered
}

// BarChartSink redraws a PNG bar chart of the scene likelihoods after every cycle.
type BarChartSink struct {
	mu        sync.Mutex
	logger    logging.Logger
	outputDir string
	labels    []string
}

// NewBarChartSink returns a sink writing into outputDir, which is created if needed.
func NewBarChartSink(outputDir string, logger logging.Logger) (*BarChartSink, error) {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "cannot create plot output dir %q", outputDir)
	}
	return &BarChartSink{logger: logger, outputDir: outputDir}, nil
}

// SetScenes fixes the bar labels and draws an empty chart so the file exists before the first
// cycle.
func (bs *BarChartSink) SetScenes(scenes []string) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.labels = append([]string(nil), scenes...)
	return bs.render(labeledResults(bs.labels, nil))
}

// Publish implements engine.ResultSink.
func (bs *BarChartSink) Publish(ctx context.Context, results []model.SceneIdentifier) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.render(labeledResults(bs.labels, results))
}

// Path returns the file the chart is written to.
func (bs *BarChartSink) Path() string {
	return filepath.Join(bs.outputDir, LikelihoodChartFile)
}

func (bs *BarChartSink) render(results []model.SceneIdentifier) error {
	if len(results) == 0 {
		bs.logger.Debug("no scenes to chart")
		return nil
	}

	p := plot.New()
	p.Title.Text = "Scene likelihoods"
	p.Y.Label.Text = "Probability"
	p.Y.Min = 0
	p.Y.Max = 1

	width := vg.Points(20)
	likelihoods := make(plotter.Values, len(results))
	priors := make(plotter.Values, len(results))
	for i, r := range results {
		likelihoods[i] = r.Likelihood
		priors[i] = r.Prior
	}

	likelihoodBars, err := plotter.NewBarChart(likelihoods, width)
	if err != nil {
		return err
	}
	likelihoodBars.Color = plotutil.Color(0)
	likelihoodBars.Offset = -width / 2

	priorBars, err := plotter.NewBarChart(priors, width)
	if err != nil {
		return err
	}
	priorBars.Color = plotutil.Color(1)
	priorBars.Offset = width / 2

	p.Add(likelihoodBars, priorBars)
	p.Legend.Add("likelihood", likelihoodBars)
	p.Legend.Add("prior", priorBars)
	p.Legend.Top = true
	p.NominalX(lo.Map(results, func(r model.SceneIdentifier, _ int) string { return r.Description })...)

	if err := p.Save(vg.Length(len(results)+2)*vg.Inch, 5*vg.Inch, bs.Path()); err != nil {
		return errors.Wrap(err, "save likelihood chart")
	}
	return nil
}
