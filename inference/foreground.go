package inference

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"

	"go.viam.com/psm/observation"
	"go.viam.com/psm/utils"
)

// Registered foreground algorithm names.
const (
	MaximumName    = "maximum"
	SummarizedName = "summarized"
	MultipliedName = "multiplied"
	PowerSetName   = "powerset"
)

func init() {
	Register(MaximumName, func() Algorithm { return &foreground{name: MaximumName, combine: maximum} })
	Register(SummarizedName, func() Algorithm { return &foreground{name: SummarizedName, combine: summarized} })
	Register(MultipliedName, func() Algorithm { return &foreground{name: MultipliedName, combine: multiplied} })
	Register(PowerSetName, func() Algorithm { return &foreground{name: PowerSetName, combine: powerSetMean} })
}

// foreground evaluates every foreground term of a scene against the evidence and folds the results
// into one likelihood. A scene without foreground terms is neutral.
type foreground struct {
	name    string
	combine func(terms []float64) (float64, error)
}

func (f *foreground) Name() string {
	return f.name
}

func (f *foreground) ComputeLikelihood(evidence []observation.Object, scene Scene) (float64, error) {
	terms := lo.Map(scene.ForegroundTerms(), func(term Term, _ int) float64 {
		return utils.Clamp01(term.Likelihood(evidence))
	})
	if len(terms) == 0 {
		return 1, nil
	}
	v, err := f.combine(terms)
	if err != nil {
		return 0, err
	}
	return utils.Clamp01(v), nil
}

func maximum(terms []float64) (float64, error) {
	return stats.Max(terms)
}

func summarized(terms []float64) (float64, error) {
	return stats.Mean(terms)
}

func multiplied(terms []float64) (float64, error) {
	logSum := 0.
	for _, t := range terms {
		logSum += utils.SafeLog(t)
	}
	return math.Exp(logSum), nil
}

// powerSetMean averages the product of the terms over every non-empty subset of them.
func powerSetMean(terms []float64) (float64, error) {
	var sum float64
	err := PowerSet(len(terms), func(mask uint64) {
		if mask == 0 {
			return
		}
		logProduct := 0.
		for i, t := range terms {
			if mask&(1<<i) != 0 {
				logProduct += utils.SafeLog(t)
			}
		}
		sum += math.Exp(logProduct)
	})
	if err != nil {
		return 0, err
	}
	return sum / float64((uint64(1)<<len(terms))-1), nil
}
