package metainf

import (
	"fmt"
	"slices"
)

// container is the overlay node that owns another one. Children report
// their changes to it and refuse mutations once it is no longer alive.
type container interface {
	changed()
	checkAlive() error
}

// tracked keeps the entities an overlay has touched, in touch order. The
// order makes change iteration, and therefore conflict reports, repeatable.
type tracked[T any] struct {
	items map[string]T
	order []string
}

func newTracked[T any]() tracked[T] {
	return tracked[T]{items: map[string]T{}}
}

func (t *tracked[T]) get(key string) (T, bool) {
	v, ok := t.items[key]
	return v, ok
}

func (t *tracked[T]) put(key string, v T) {
	if _, ok := t.items[key]; !ok {
		t.order = append(t.order, key)
	}
	t.items[key] = v
}

func (t *tracked[T]) delete(key string) {
	if _, ok := t.items[key]; !ok {
		return
	}
	delete(t.items, key)
	t.order = slices.DeleteFunc(t.order, func(k string) bool { return k == key })
}

func (t *tracked[T]) values() []T {
	values := make([]T, 0, len(t.order))
	for _, k := range t.order {
		values = append(values, t.items[k])
	}
	return values
}

// mustBuild turns a builder failure into a panic. Overlays validate every
// change eagerly, so a failure here means an invariant of this package broke.
func mustBuild[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("metainf: overlay invariant violated: %v", err))
	}
	return v
}
