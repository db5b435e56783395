// Package project implements the persistent document collaborator: a SQLite
// sidecar next to the project file holding document properties, the undo
// stack position, and the preview range so CLI invocations resume where the
// previous one stopped.
package project
