// Package reconcile provides the pure set-diff primitive every provider
// handler converges through.
package reconcile

import "sort"

// Result partitions identity keys into the three disjoint apply sets for
// one resource group. Keys are sorted so passes over the same inputs apply
// operations in a stable order.
type Result struct {
	ToAdd    []string
	ToUpdate []string
	ToDelete []string
}

// Diff compares the provider-observed keys against the stored keys of one
// resource group. ToAdd is latest minus current, ToUpdate the
// intersection, ToDelete current minus latest. The caller decides for each
// ToUpdate key whether the unit actually moved generation; Diff itself has
// no side effects.
func Diff[L, C any](latest map[string]L, current map[string]C) Result {
	var r Result
	for key := range latest {
		if _, ok := current[key]; ok {
			r.ToUpdate = append(r.ToUpdate, key)
		} else {
			r.ToAdd = append(r.ToAdd, key)
		}
	}
	for key := range current {
		if _, ok := latest[key]; !ok {
			r.ToDelete = append(r.ToDelete, key)
		}
	}
	sort.Strings(r.ToAdd)
	sort.Strings(r.ToUpdate)
	sort.Strings(r.ToDelete)
	return r
}
