// Package provider defines the error contract shared by all provider
// query clients. Handlers use it to tell "resource legitimately gone"
// apart from transient faults, which drive different reconciliation
// decisions.
package provider

import "errors"

// ErrNotFound signals that a queried resource group no longer exists on
// the provider side. This is distinct from "exists but has zero live
// instances" (an empty result) and from a transient failure (any other
// error). Handlers treat it as zero live instances and proceed to delete
// stale records.
var ErrNotFound = errors.New("resource not found")

// IsNotFound reports whether err indicates a legitimately missing
// resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
