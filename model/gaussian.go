package model

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/psm/observation"
	"go.viam.com/psm/utils"
)

// MinVariance is added to every diagonal element of a learned covariance so that a distribution
// learned from few or collinear samples stays invertible.
const MinVariance = 1e-4

// Distribution learns where objects of one type sit in a scene, as a 3D Gaussian over positions.
// Only sufficient statistics are stored, so learning is incremental and order independent.
type Distribution struct {
	objectType string
	samples    int
	sum        r3.Vector
	sumOuter   *mat.SymDense

	mean r3.Vector
	cov  *mat.SymDense
	chol *mat.Cholesky
}

// NewDistribution returns a distribution that has seen no samples.
func NewDistribution(objectType string) *Distribution {
	return &Distribution{objectType: objectType, sumOuter: mat.NewSymDense(3, nil)}
}

// Type returns the object type the distribution describes.
func (d *Distribution) Type() string {
	return d.objectType
}

// Samples returns the number of positions learned.
func (d *Distribution) Samples() int {
	return d.samples
}

// Add learns one position. The fitted mean and covariance only change on the next Fit.
func (d *Distribution) Add(p r3.Vector) {
	d.samples++
	d.sum = d.sum.Add(p)
	v := []float64{p.X, p.Y, p.Z}
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			d.sumOuter.SetSym(i, j, d.sumOuter.At(i, j)+v[i]*v[j])
		}
	}
}

// Fit recomputes mean, covariance and its factorization from the sufficient statistics.
func (d *Distribution) Fit() error {
	d.chol = nil
	if d.samples == 0 {
		d.mean = r3.Vector{}
		d.cov = nil
		return nil
	}
	n := float64(d.samples)
	d.mean = d.sum.Mul(1 / n)
	m := []float64{d.mean.X, d.mean.Y, d.mean.Z}
	cov := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			v := d.sumOuter.At(i, j)/n - m[i]*m[j]
			if i == j {
				v = math.Max(v, 0) + MinVariance
			}
			cov.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return errors.Errorf("covariance of %q is not positive definite", d.objectType)
	}
	d.cov = cov
	d.chol = &chol
	return nil
}

// Mean returns the fitted mean.
func (d *Distribution) Mean() r3.Vector {
	return d.mean
}

// Covariance returns a copy of the fitted covariance, or nil before the first successful Fit.
func (d *Distribution) Covariance() *mat.SymDense {
	if d.cov == nil {
		return nil
	}
	return mat.NewSymDense(3, append([]float64(nil), d.cov.RawSymmetric().Data...))
}

// Match returns exp(-d²/2) for the Mahalanobis distance d of p to the fitted distribution, 1 at the
// mean and falling towards 0. An unfitted distribution matches nothing.
func (d *Distribution) Match(p r3.Vector) float64 {
	if d.chol == nil {
		return 0
	}
	x := mat.NewVecDense(3, []float64{p.X, p.Y, p.Z})
	mu := mat.NewVecDense(3, []float64{d.mean.X, d.mean.Y, d.mean.Z})
	dist := stat.Mahalanobis(x, mu, d.chol)
	return math.Exp(-0.5 * utils.Square(dist))
}

// Likelihood scores the best matching observation of this type. With no such observation it is 0.
func (d *Distribution) Likelihood(evidence []observation.Object) float64 {
	best := 0.
	for _, o := range evidence {
		if o.Type != d.objectType || o.Pose == nil {
			continue
		}
		best = math.Max(best, d.Match(o.Pose.Point()))
	}
	return best
}
