package visualization

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"go.viam.com/psm/logging"
	"go.viam.com/psm/model"
)

const ellipseSegments = 48

// DrawerConfig holds the scene drawer parameters.
type DrawerConfig struct {
	OutputDir string
	// FrameID labels the axes of every map.
	FrameID string
	// ScaleFactor multiplies every plotted coordinate.
	ScaleFactor float64
	// SigmaMultiplicator is the number of standard deviations an ellipse spans.
	SigmaMultiplicator float64
}

// SceneDrawer implements model.Visualizer by writing one top-down PNG per scene. Each learned
// distribution is drawn as its mean and a covariance ellipse in the xy plane, evidence as crosses.
type SceneDrawer struct {
	mu     sync.Mutex
	cfg    DrawerConfig
	logger logging.Logger
	drawn  int
}

// NewSceneDrawer returns a drawer writing into cfg.OutputDir. Zero scale and sigma values fall
// back to 1.
func NewSceneDrawer(cfg DrawerConfig, logger logging.Logger) (*SceneDrawer, error) {
	if cfg.ScaleFactor == 0 {
		cfg.ScaleFactor = 1
	}
	if cfg.SigmaMultiplicator == 0 {
		cfg.SigmaMultiplicator = 1
	}
	if cfg.ScaleFactor < 0 || cfg.SigmaMultiplicator < 0 {
		return nil, errors.New("scale factor and sigma multiplicator must be positive")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "cannot create plot output dir %q", cfg.OutputDir)
	}
	return &SceneDrawer{cfg: cfg, logger: logger}, nil
}

// SceneFile returns the path the map of scene is written to.
func (sd *SceneDrawer) SceneFile(scene string) string {
	return filepath.Join(sd.cfg.OutputDir, "scene_"+fileSafe(scene)+".png")
}

// Drawn returns how many maps were written so far.
func (sd *SceneDrawer) Drawn() int {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	return sd.drawn
}

// Draw writes a map per scene. In targeting mode only the distributions that no evidence
// accounts for yet are drawn.
func (sd *SceneDrawer) Draw(views []model.SceneView, targeting bool) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	for _, view := range views {
		if err := sd.drawScene(view, targeting); err != nil {
			return errors.Wrapf(err, "cannot draw scene %q", view.Description)
		}
		sd.drawn++
	}
	return nil
}

func (sd *SceneDrawer) drawScene(view model.SceneView, targeting bool) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s) likelihood %.3f", view.Description, view.Type, view.Likelihood)
	if targeting {
		p.Title.Text += " missing"
	}
	p.X.Label.Text = "x [" + sd.cfg.FrameID + "]"
	p.Y.Label.Text = "y [" + sd.cfg.FrameID + "]"
	p.Legend.Top = true
	p.Legend.Left = false

	colors := palette(len(view.Distributions))
	for i, d := range view.Distributions {
		if targeting && d.Observed {
			continue
		}
		if d.Covariance == nil {
			sd.logger.Debugw("distribution not fitted yet", "scene", view.Description, "type", d.Type)
			continue
		}
		outline, err := Ellipse(d.Mean, d.Covariance, sd.cfg.SigmaMultiplicator, ellipseSegments)
		if err != nil {
			return err
		}
		sd.scale(outline)
		line, err := plotter.NewLine(outline)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (%d)", d.Type, d.Samples), line)

		center := plotter.XYs{{X: d.Mean.X, Y: d.Mean.Y}}
		sd.scale(center)
		mean, err := plotter.NewScatter(center)
		if err != nil {
			return err
		}
		mean.GlyphStyle = draw.GlyphStyle{Color: colors[i], Radius: vg.Points(2), Shape: draw.CircleGlyph{}}
		p.Add(mean)
	}

	if len(view.Evidence) > 0 {
		pts := make(plotter.XYs, len(view.Evidence))
		for i, o := range view.Evidence {
			pt := o.PoseInFrame().Pose().Point()
			pts[i] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		sd.scale(pts)
		evidence, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		evidence.GlyphStyle = draw.GlyphStyle{Color: color.Black, Radius: vg.Points(3), Shape: draw.CrossGlyph{}}
		p.Add(evidence)
		p.Legend.Add("evidence", evidence)
	}

	return p.Save(6*vg.Inch, 6*vg.Inch, sd.SceneFile(view.Description))
}

// palette returns n hues spread evenly around the HCL wheel at equal chroma and lightness.
func palette(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := range colors {
		colors[i] = colorful.Hcl(360*float64(i)/float64(n), 0.6, 0.55).Clamped()
	}
	return colors
}

func (sd *SceneDrawer) scale(pts plotter.XYs) {
	for i := range pts {
		pts[i].X *= sd.cfg.ScaleFactor
		pts[i].Y *= sd.cfg.ScaleFactor
	}
}

// Ellipse returns the closed outline, in the xy plane, of the region within sigma standard
// deviations of a 3D Gaussian's marginal.
func Ellipse(mean r3.Vector, cov mat.Symmetric, sigma float64, segments int) (plotter.XYs, error) {
	if cov.SymmetricDim() < 2 {
		return nil, errors.Errorf("covariance must be at least 2x2, got %d", cov.SymmetricDim())
	}
	if segments < 3 {
		return nil, errors.Errorf("an ellipse needs at least 3 segments, got %d", segments)
	}
	xy := mat.NewSymDense(2, []float64{
		cov.At(0, 0), cov.At(0, 1),
		cov.At(1, 0), cov.At(1, 1),
	})
	var es mat.EigenSym
	if ok := es.Factorize(xy, true); !ok {
		return nil, errors.New("cannot factorize covariance")
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	// Rounding can leave tiny negative eigenvalues on a degenerate covariance.
	a := sigma * math.Sqrt(math.Max(values[0], 0))
	b := sigma * math.Sqrt(math.Max(values[1], 0))
	u := r3.Vector{X: vectors.At(0, 0), Y: vectors.At(1, 0)}
	v := r3.Vector{X: vectors.At(0, 1), Y: vectors.At(1, 1)}

	outline := make(plotter.XYs, segments+1)
	for i := 0; i <= segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		pt := u.Mul(a * math.Cos(theta)).Add(v.Mul(b * math.Sin(theta)))
		outline[i] = plotter.XY{X: mean.X + pt.X, Y: mean.Y + pt.Y}
	}
	return outline, nil
}

func fileSafe(name string) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, name)
	if safe == "" {
		return "unnamed"
	}
	return safe
}
