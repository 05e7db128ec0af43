// Package preflight provides readiness checks for the external binaries and
// filesystem paths tunegrab depends on.
//
// The fetch command runs RunAll before submitting a batch and refuses to
// start when a required check fails; the check command prints every result.
package preflight
