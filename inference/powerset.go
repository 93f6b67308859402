package inference

import (
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/psm/observation"
	"go.viam.com/psm/probability"
	"go.viam.com/psm/utils"
)

// MaxPowerSetSize bounds the number of elements whose power set is enumerated.
const MaxPowerSetSize = 24

// PowerSetBackgroundName is the registered name of PowerSetBackground.
const PowerSetBackgroundName = "powerset_background"

func init() {
	RegisterBackground(PowerSetBackgroundName, func() Algorithm { return &PowerSetBackground{} })
}

// PowerSet calls visit once for each of the 2^n subsets of n elements, starting with the empty set.
// Element i is in the subset iff bit i of mask is set.
func PowerSet(n int, visit func(mask uint64)) error {
	if n < 0 || n > MaxPowerSetSize {
		return errors.Wrapf(ErrPowerSetTooLarge, "%d elements, limit %d", n, MaxPowerSetSize)
	}
	for mask := uint64(0); mask < uint64(1)<<n; mask++ {
		visit(mask)
	}
	return nil
}

// Presence returns the share of learned examples in which objectType was present, read from the
// raw counters of its own column. Types without a column read the default class. ok is false when
// the column holds no counts at all.
func Presence(table *probability.MappedTable, objectType string) (p float64, ok bool, err error) {
	present, err := table.Count(RowPresent, objectType)
	if err != nil {
		return 0, false, err
	}
	absent, err := table.Count(RowAbsent, objectType)
	if err != nil {
		return 0, false, err
	}
	if present+absent <= 0 {
		return 0, false, nil
	}
	return present / (present + absent), true, nil
}

// PowerSetBackground scores a scene by the combination of its background object types. Every subset
// S of the mapped background types is a hypothesis "exactly the types in S are in the scene",
// weighted by the product of P(present|t) for t in S and 1-P(present|t) for t not in S. The
// likelihood is the share of that weight held by subsets containing every observed background
// type. Products are taken in log space. Types whose column holds no counts take no part.
//
// Observed types the scene never learned are scored with the default class presence, one factor
// per type, when the default column holds counts.
//
// With no mapped background types there is a single empty hypothesis and the likelihood is 1.
type PowerSetBackground struct{}

// Name returns the registered name.
func (*PowerSetBackground) Name() string {
	return PowerSetBackgroundName
}

// ComputeLikelihood implements Algorithm.
func (*PowerSetBackground) ComputeLikelihood(evidence []observation.Object, scene Scene) (float64, error) {
	table := scene.BackgroundTable()
	if table == nil {
		return 1, nil
	}
	if table.RowCount() != BackgroundRows {
		return 0, errors.Errorf("background table has %d rows, want %d", table.RowCount(), BackgroundRows)
	}

	observed := lo.SliceToMap(evidence, func(o observation.Object) (string, struct{}) { return o.Type, struct{}{} })
	var types []string
	var logPresent, logAbsent []float64
	var required uint64
	for _, t := range table.Types() {
		if t == probability.DefaultClass {
			continue
		}
		p, ok, err := Presence(table, t)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if _, seen := observed[t]; seen {
			required |= 1 << len(types)
		}
		types = append(types, t)
		logPresent = append(logPresent, utils.SafeLog(p))
		logAbsent = append(logAbsent, utils.SafeLog(1-p))
	}

	unseen, err := unseenFactor(table, scene, observed)
	if err != nil {
		return 0, err
	}

	var all, consistent []float64
	err = PowerSet(len(types), func(mask uint64) {
		logWeight := 0.
		for i := range types {
			if mask&(1<<i) != 0 {
				logWeight += logPresent[i]
			} else {
				logWeight += logAbsent[i]
			}
		}
		if math.IsInf(logWeight, -1) {
			return
		}
		all = append(all, logWeight)
		if mask&required == required {
			consistent = append(consistent, logWeight)
		}
	})
	if err != nil {
		return 0, err
	}
	if len(consistent) == 0 {
		return 0, nil
	}
	return utils.Clamp01(unseen * math.Exp(floats.LogSumExp(consistent)-floats.LogSumExp(all))), nil
}

// unseenFactor is the product of the default class presence over observed types that have neither
// a background column nor a foreground distribution in scene.
func unseenFactor(table *probability.MappedTable, scene Scene, observed map[string]struct{}) (float64, error) {
	foreground := lo.SliceToMap(scene.ForegroundTerms(), func(term Term) (string, struct{}) { return term.Type(), struct{}{} })
	factor := 1.
	for t := range observed {
		if _, fg := foreground[t]; fg || t == probability.DefaultClass || table.Contains(t) {
			continue
		}
		p, ok, err := Presence(table, t)
		if err != nil {
			return 0, err
		}
		if ok {
			factor *= p
		}
	}
	return factor, nil
}
