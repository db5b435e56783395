// Package preview drives timeline preview rendering for a document. It
// debounces edit notifications into render passes, keeps the chunk
// ledger and the on-disk cache in sync, and swaps preview files with the
// undo archive as the user moves through edit history.
package preview
