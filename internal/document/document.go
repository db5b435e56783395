package document

// Property keys consumed and produced by the preview cache components.
const (
	PropDocumentID        = "documentid"
	PropCacheDir          = "cachedir"
	PropPreviewExtension  = "previewextension"
	PropPreviewParameters = "previewparameters"
)

// Document is the editing-document collaborator the preview subsystem talks
// to. Implementations must be safe for use from the preview manager's
// goroutines.
type Document interface {
	// Property returns the value stored under key, empty when absent.
	Property(key string) string
	// SetProperty persists a key/value pair on the document.
	SetProperty(key, value string) error
	// UndoStackIndex is the current position in the undo stack.
	UndoStackIndex() int
	// UndoStackCount is the number of commands on the undo stack.
	UndoStackCount() int
	// PickPreviewProfile asks the document to choose preview codec
	// parameters when none are stored yet.
	PickPreviewProfile() error
	// SaveScene materializes the current document state as a scene
	// description file at path.
	SaveScene(path string) error
	// Zone returns the currently marked timeline span in frames.
	Zone() (first, last int)
	// SetModified flags the document as having unsaved changes.
	SetModified(modified bool)
}
