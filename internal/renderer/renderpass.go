package renderer

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// Renderpass is a validated render pass compiled once into a backend object.
// It is immutable after construction and may be shared across goroutines.
type Renderpass struct {
	create   RenderpassCreate
	desc     *Description
	compiler Compiler
	handle   Handle

	closeOnce sync.Once
	closed    atomic.Bool
}

// NewRenderpass validates create, resolves it against surface and compiles it.
// On any failure no backend object remains and nil is returned.
func NewRenderpass(create RenderpassCreate, compiler Compiler, surface Surface) (*Renderpass, error) {
	if err := create.Validate(); err != nil {
		return nil, err
	}
	desc, err := create.Describe(surface)
	if err != nil {
		return nil, err
	}

	h, err := compiler.CreateRenderPass(desc)
	if err != nil {
		return nil, &ResourceAcquisitionError{Resource: "render pass", Err: err}
	}
	if h == nil {
		return nil, &ResourceAcquisitionError{Resource: "render pass", Err: fmt.Errorf("backend returned no handle")}
	}

	create.Attachments = slices.Clone(create.Attachments)
	create.Subpasses = slices.Clone(create.Subpasses)
	return &Renderpass{
		create:   create,
		desc:     desc,
		compiler: compiler,
		handle:   h,
	}, nil
}

// Handle returns the compiled backend object, or nil once closed.
func (r *Renderpass) Handle() Handle {
	if r.closed.Load() {
		return nil
	}
	return r.handle
}

// Extent is the resolved size the pass was compiled for.
func (r *Renderpass) Extent() Extent { return r.desc.Extent }

// Create returns the declaration the pass was built from.
func (r *Renderpass) Create() RenderpassCreate { return r.create }

// Description returns the resolved description handed to the backend.
func (r *Renderpass) Description() *Description { return r.desc }

// SubpassCount returns the number of subpasses.
func (r *Renderpass) SubpassCount() int { return len(r.create.Subpasses) }

// ClearValues returns one clear colour per attachment, in attachment order.
func (r *Renderpass) ClearValues() []mgl32.Vec4 {
	out := make([]mgl32.Vec4, len(r.desc.Attachments))
	for i, a := range r.desc.Attachments {
		out[i] = a.ClearColour
	}
	return out
}

// Close destroys the backend object. Later calls are no-ops.
func (r *Renderpass) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		if derr := r.compiler.DestroyRenderPass(r.handle); derr != nil {
			err = fmt.Errorf("destroy render pass: %w", derr)
		}
	})
	return err
}
