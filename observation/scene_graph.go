package observation

import (
	"sort"

	"github.com/samber/lo"
)

// ObjectSet is a snapshot of every object that was present at one point in time.
type ObjectSet struct {
	Objects []Object
}

// Types returns the distinct object types in the set, sorted.
func (s ObjectSet) Types() []string {
	types := lo.Uniq(lo.Map(s.Objects, func(o Object, _ int) string { return o.Type }))
	sort.Strings(types)
	return types
}

// SceneGraph is a recorded example of a scene: the scene it shows and the object snapshots taken
// while it was demonstrated, oldest first.
type SceneGraph struct {
	Identifier string
	ObjectSets []ObjectSet
}

// Types returns the distinct object types appearing anywhere in the graph, sorted.
func (g SceneGraph) Types() []string {
	types := lo.Uniq(lo.FlatMap(g.ObjectSets, func(s ObjectSet, _ int) []string { return s.Types() }))
	sort.Strings(types)
	return types
}

// Objects returns every object of every snapshot in order.
func (g SceneGraph) Objects() []Object {
	return lo.FlatMap(g.ObjectSets, func(s ObjectSet, _ int) []Object { return s.Objects })
}

// Empty returns whether the graph holds no objects at all.
func (g SceneGraph) Empty() bool {
	return len(g.Objects()) == 0
}
