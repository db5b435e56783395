// Package errs defines the sentinel error taxonomy shared by the preview
// cache components. Errors crossing a component boundary carry one of the
// exported markers so callers can classify failures without string matching.
package errs
