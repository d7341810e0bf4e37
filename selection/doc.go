// Package selection holds the process-wide choice of target project and
// region.
//
// The selection package provides the Store read by the sandbox engine and
// the thin tool handlers whenever a request omits an explicit project or
// region. It is an explicitly owned object rather than a hidden global, so
// tests construct isolated instances.
//
// A store starts with no project selected and the configured default
// region. The region is never empty: clearing the store restores the
// default rather than leaving a hole.
package selection
