package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks failures that make preview features unusable
	// for a document (bad document id, unloadable parameters, missing
	// undo directory). Callers must not proceed with previews after one.
	ErrConfiguration = errors.New("configuration error")
	// ErrExternalTool marks transcoder process failures.
	ErrExternalTool = errors.New("external tool error")
	// ErrNotFound marks a missing project file. Absent chunk or archive
	// files are tolerated and never carry this marker.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks retryable failures; affected chunks stay dirty.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether the error should stop preview features entirely
// rather than leave chunks dirty for a retry.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrNotFound)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "preview failure"
	}
	return strings.Join(parts, ": ")
}
