package renderer

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *ConfigurationError.
var ErrConfiguration = errors.New("render configuration error")

// NoIndex marks a ConfigurationError field that does not apply.
const NoIndex = ^uint32(0)

// ConfigurationError reports an invalid render pass or pipeline description.
// Subpass and Attachment name the offending bindings, NoIndex when unused.
type ConfigurationError struct {
	Subpass    uint32
	Attachment uint32
	Reason     string
}

func (e *ConfigurationError) Error() string {
	msg := "render configuration"
	if e.Subpass != NoIndex {
		msg += fmt.Sprintf(" subpass %d", e.Subpass)
	}
	if e.Attachment != NoIndex {
		msg += fmt.Sprintf(" attachment %d", e.Attachment)
	}
	return msg + ": " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configErr(subpass, attachment uint32, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Subpass: subpass, Attachment: attachment, Reason: fmt.Sprintf(format, args...)}
}

// ResourceAcquisitionError wraps a backend failure to create a native object.
type ResourceAcquisitionError struct {
	Resource string
	Err      error
}

func (e *ResourceAcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s: %v", e.Resource, e.Err)
}

func (e *ResourceAcquisitionError) Unwrap() error { return e.Err }
