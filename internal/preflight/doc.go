// Package preflight provides readiness checks for the external transcoder
// and the filesystem paths preview rendering depends on. The CLI doctor
// command runs the full set; individual checks back status displays.
package preflight
