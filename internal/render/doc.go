// Package render runs the external transcoder over dirty timeline chunks.
// One process is launched per chunk, in ascending chunk order, with progress
// reported in permille. The renderer never owns cache files; it writes and
// deletes them only under direction of the preview manager.
package render
