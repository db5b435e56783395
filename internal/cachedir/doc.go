// Package cachedir owns the on-disk preview cache for a document: the live
// chunk files named <startFrame>.<extension>, the per-pass scene description,
// and the undo archive tree (undo/<stackIndex>/) used to keep previews
// consistent with undo/redo navigation. A file lock guards the directory
// against concurrent writers; all mutation goes through this package.
package cachedir
