package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// HeadlessHandle is the handle type issued by HeadlessBackend.
type HeadlessHandle uint64

// HeadlessBackend compiles and records in memory. It backs runs without a
// GPU and checks that recording follows render pass structure.
type HeadlessBackend struct {
	mu     sync.Mutex
	nextID uint64
	live   map[HeadlessHandle]*Description
	ops    []string
	draws  []DrawCall
	frames int

	// recording state
	inFrame bool
	pass    *Description
	subpass int

	failCreate error
}

func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{live: make(map[HeadlessHandle]*Description)}
}

// FailNextCreate makes the next CreateRenderPass call fail with err.
func (b *HeadlessBackend) FailNextCreate(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCreate = err
}

func (b *HeadlessBackend) CreateRenderPass(desc *Description) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failCreate; err != nil {
		b.failCreate = nil
		return nil, err
	}
	b.nextID++
	h := HeadlessHandle(b.nextID)
	b.live[h] = desc
	b.ops = append(b.ops, fmt.Sprintf("create %d", h))
	return h, nil
}

func (b *HeadlessBackend) DestroyRenderPass(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	hh, ok := h.(HeadlessHandle)
	if !ok {
		return fmt.Errorf("headless: foreign handle %T", h)
	}
	if _, ok := b.live[hh]; !ok {
		return fmt.Errorf("headless: render pass %d not live", hh)
	}
	delete(b.live, hh)
	b.ops = append(b.ops, fmt.Sprintf("destroy %d", hh))
	return nil
}

func (b *HeadlessBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFrame {
		return errors.New("headless: frame already begun")
	}
	b.inFrame = true
	b.ops = append(b.ops, "begin_frame")
	return nil
}

func (b *HeadlessBackend) BeginRenderPass(h Handle, extent Extent, clear []mgl32.Vec4) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame || b.pass != nil {
		return errors.New("headless: begin render pass outside frame or inside pass")
	}
	hh, _ := h.(HeadlessHandle)
	desc, ok := b.live[hh]
	if !ok {
		return fmt.Errorf("headless: render pass %v not live", h)
	}
	if len(clear) != len(desc.Attachments) {
		return fmt.Errorf("headless: %d clear values for %d attachments", len(clear), len(desc.Attachments))
	}
	b.pass = desc
	b.subpass = 0
	b.ops = append(b.ops, fmt.Sprintf("begin_pass %d %dx%d", hh, extent.Width, extent.Height))
	return nil
}

func (b *HeadlessBackend) NextSubpass() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil {
		return errors.New("headless: next subpass outside render pass")
	}
	if b.subpass+1 >= len(b.pass.Subpasses) {
		return fmt.Errorf("headless: no subpass after %d", b.subpass)
	}
	b.subpass++
	b.ops = append(b.ops, fmt.Sprintf("next_subpass %d", b.subpass))
	return nil
}

func (b *HeadlessBackend) Draw(call DrawCall) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil {
		return errors.New("headless: draw outside render pass")
	}
	b.draws = append(b.draws, call)
	b.ops = append(b.ops, "draw "+call.Pipeline)
	return nil
}

func (b *HeadlessBackend) EndRenderPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil {
		return errors.New("headless: end render pass outside render pass")
	}
	if b.subpass != len(b.pass.Subpasses)-1 {
		return fmt.Errorf("headless: render pass ended at subpass %d of %d", b.subpass, len(b.pass.Subpasses))
	}
	b.pass = nil
	b.ops = append(b.ops, "end_pass")
	return nil
}

func (b *HeadlessBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame || b.pass != nil {
		return errors.New("headless: end frame with open render pass")
	}
	b.inFrame = false
	b.frames++
	b.ops = append(b.ops, "end_frame")
	return nil
}

// Live returns the number of render passes created and not destroyed.
func (b *HeadlessBackend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// Frames returns the number of completed frames.
func (b *HeadlessBackend) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Ops returns the recorded operation log.
func (b *HeadlessBackend) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ops...)
}

// Draws returns every recorded draw call.
func (b *HeadlessBackend) Draws() []DrawCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]DrawCall(nil), b.draws...)
}

// ResetLog clears the operation and draw logs.
func (b *HeadlessBackend) ResetLog() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = nil
	b.draws = nil
}
