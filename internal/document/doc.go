// Package document declares the editing-document contract the preview cache
// depends on: a key/value property store, undo stack introspection, and
// scene serialization. The project package provides the persistent
// implementation; tests use the in-memory double from testsupport.
package document
