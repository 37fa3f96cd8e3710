// Package cases defines the master-case model shared by intake components.
//
// Stored status strings are loose: older rows use legacy names such as
// "generated" or "warehouse_packed". Canonical resolves a stored value once
// into the tagged Status enum so that the classifier and the progress
// aggregator never compare raw strings. Stage order, completion weights, and
// the receive eligibility set all live here.
package cases
