// Package inference computes how well the current evidence supports a learned scene.
package inference

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/psm/observation"
	"go.viam.com/psm/probability"
)

// Rows of a scene's background table.
const (
	RowAbsent  = 0
	RowPresent = 1
	// BackgroundRows is the number of rows a background table must have.
	BackgroundRows = 2
)

var (
	// ErrUnknownAlgorithm is returned for algorithm names nothing registered.
	ErrUnknownAlgorithm = errors.New("unknown inference algorithm")
	// ErrPowerSetTooLarge is returned when enumerating a power set would exceed MaxPowerSetSize elements.
	ErrPowerSetTooLarge = errors.New("power set too large")
)

// Term scores one object type of a scene's foreground against the evidence, in [0, 1].
type Term interface {
	Type() string
	Likelihood(evidence []observation.Object) float64
}

// Scene is the learned state an Algorithm reads. Implementations must not be mutated while an
// Algorithm runs.
type Scene interface {
	BackgroundTable() *probability.MappedTable
	ForegroundTerms() []Term
}

// Algorithm computes the likelihood of a scene given the evidence. Algorithms hold no state between
// calls.
type Algorithm interface {
	Name() string
	ComputeLikelihood(evidence []observation.Object, scene Scene) (float64, error)
}

// Factory creates an Algorithm.
type Factory func() Algorithm

type registration struct {
	factory    Factory
	background bool
}

var (
	registryMu sync.RWMutex
	registry   = map[string]registration{}
)

// Register makes a foreground algorithm available under name. It panics on duplicates.
func Register(name string, f Factory) {
	register(name, f, false)
}

// RegisterBackground makes a background algorithm available under name. It panics on duplicates.
func RegisterBackground(name string, f Factory) {
	register(name, f, true)
}

func register(name string, f Factory, background bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(errors.Errorf("inference algorithm %q already registered", name))
	}
	registry[name] = registration{factory: f, background: background}
}

// New creates the algorithm registered under name.
func New(name string) (Algorithm, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "%q", name)
	}
	return reg.factory(), nil
}

// NewForeground is New restricted to foreground algorithms.
func NewForeground(name string) (Algorithm, error) {
	registryMu.RLock()
	reg, ok := registry[name]
	registryMu.RUnlock()
	if ok && reg.background {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "%q is a background algorithm", name)
	}
	return New(name)
}

// Names returns every registered algorithm name, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForegroundNames returns the registered foreground algorithm names, sorted.
func ForegroundNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name, reg := range registry {
		if !reg.background {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
