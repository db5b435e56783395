// Package ledger holds the pure in-memory bookkeeping of timeline preview
// chunks: which chunks belong to the preview range, which are dirty, and
// which have materialized preview files. It is consumed independently by the
// render scheduler and by display layers; painting and file management live
// elsewhere.
package ledger
