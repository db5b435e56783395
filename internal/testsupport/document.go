package testsupport

import (
	"os"
	"sync"

	"previewcache/internal/document"
)

// FakeDocument is an in-memory document.Document double. The zero value is
// not usable; construct it with NewFakeDocument.
type FakeDocument struct {
	mu         sync.Mutex
	props      map[string]string
	stackIndex int
	stackCount int
	zoneFirst  int
	zoneLast   int
	modified   bool
	sceneBody  string

	// ProfileExtension/ProfileParameters are applied by PickPreviewProfile.
	ProfileExtension  string
	ProfileParameters string
	// ProfileErr, when set, is returned by PickPreviewProfile.
	ProfileErr error

	ProfilePicks int
	SavedScenes  []string
}

// NewFakeDocument returns a document with a valid numeric id and a default
// preview profile available for selection.
func NewFakeDocument() *FakeDocument {
	return &FakeDocument{
		props: map[string]string{
			document.PropDocumentID: "1456170000000",
		},
		zoneFirst:         0,
		zoneLast:          100,
		sceneBody:         "<mlt/>",
		ProfileExtension:  "mp4",
		ProfileParameters: "vcodec=libx264 vb=1000k",
	}
}

func (d *FakeDocument) Property(key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.props[key]
}

func (d *FakeDocument) SetProperty(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.props[key] = value
	return nil
}

func (d *FakeDocument) UndoStackIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stackIndex
}

func (d *FakeDocument) UndoStackCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stackCount
}

// SetUndoStack positions the fake undo stack.
func (d *FakeDocument) SetUndoStack(index, count int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stackIndex = index
	d.stackCount = count
}

func (d *FakeDocument) PickPreviewProfile() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ProfilePicks++
	if d.ProfileErr != nil {
		return d.ProfileErr
	}
	d.props[document.PropPreviewExtension] = d.ProfileExtension
	d.props[document.PropPreviewParameters] = d.ProfileParameters
	return nil
}

func (d *FakeDocument) SaveScene(path string) error {
	d.mu.Lock()
	body := d.sceneBody
	d.SavedScenes = append(d.SavedScenes, path)
	d.mu.Unlock()
	return os.WriteFile(path, []byte(body), 0o644)
}

func (d *FakeDocument) Zone() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.zoneFirst, d.zoneLast
}

// SetZone positions the fake timeline zone.
func (d *FakeDocument) SetZone(first, last int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.zoneFirst = first
	d.zoneLast = last
}

func (d *FakeDocument) SetModified(modified bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modified = modified
}

// Modified reports whether SetModified(true) was called.
func (d *FakeDocument) Modified() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modified
}

// ClearProperty removes a stored property.
func (d *FakeDocument) ClearProperty(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.props, key)
}

// SetDocumentID overrides the generated document id, empty clears it.
func (d *FakeDocument) SetDocumentID(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == "" {
		delete(d.props, document.PropDocumentID)
		return
	}
	d.props[document.PropDocumentID] = id
}

var _ document.Document = (*FakeDocument)(nil)
