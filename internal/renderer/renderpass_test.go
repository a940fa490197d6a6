package renderer

import (
	"errors"
	"testing"
)

var testSurface = Surface{
	Extent:        Extent{Width: 1280, Height: 720},
	SurfaceFormat: FormatB8G8R8A8Unorm,
	DepthFormat:   FormatD32Sfloat,
	Samples:       4,
}

func depthSwapchainCreate() RenderpassCreate {
	return RenderpassCreate{
		Attachments: []Attachment{
			NewAttachment(0, "depth", AttachmentDepth),
			NewAttachment(1, "swapchain", AttachmentSwapchain),
		},
		Subpasses: []SubpassType{NewSubpass(0, 0, 1)},
	}
}

func TestRenderpassDepthSwapchainCompilesOnce(t *testing.T) {
	b := NewHeadlessBackend()
	rp, err := NewRenderpass(depthSwapchainCreate(), b, testSurface)
	if err != nil {
		t.Fatalf("NewRenderpass: %v", err)
	}
	h1, h2 := rp.Handle(), rp.Handle()
	if h1 == nil || h1 != h2 {
		t.Fatalf("handles = %v, %v; want one stable handle", h1, h2)
	}
	if b.Live() != 1 {
		t.Fatalf("backend holds %d passes, want 1", b.Live())
	}
	if rp.Extent() != testSurface.Extent {
		t.Fatalf("extent = %v, want surface extent", rp.Extent())
	}

	desc := rp.Description()
	if desc.Attachments[0].Format != FormatD32Sfloat || desc.Attachments[1].Format != FormatB8G8R8A8Unorm {
		t.Fatalf("formats not resolved from surface: %+v", desc.Attachments)
	}
	sp := desc.Subpasses[0]
	if sp.Depth == nil || sp.Depth.Index != 0 || len(sp.Colour) != 1 || sp.Colour[0].Index != 1 {
		t.Fatalf("subpass refs = %+v", sp)
	}

	if err := rp.Close(); err != nil {
		t.Fatal(err)
	}
	if err := rp.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if rp.Handle() != nil || b.Live() != 0 {
		t.Fatal("handle survived Close")
	}
}

func TestRenderpassValidation(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*RenderpassCreate)
		subpass    uint32
		attachment uint32
	}{
		{
			name:       "out of range subpass binding",
			mutate:     func(c *RenderpassCreate) { c.Subpasses[0].AttachmentBindings = []uint32{0, 2} },
			subpass:    0,
			attachment: 2,
		},
		{
			name: "duplicate attachment binding",
			mutate: func(c *RenderpassCreate) {
				c.Attachments = append(c.Attachments, NewAttachment(1, "again", AttachmentImage))
			},
			subpass:    NoIndex,
			attachment: 1,
		},
		{
			name:       "no subpasses",
			mutate:     func(c *RenderpassCreate) { c.Subpasses = nil },
			subpass:    NoIndex,
			attachment: NoIndex,
		},
		{
			name: "two depth targets in one subpass",
			mutate: func(c *RenderpassCreate) {
				c.Attachments = append(c.Attachments, NewAttachment(2, "shadow", AttachmentDepth))
				c.Subpasses[0].AttachmentBindings = []uint32{0, 1, 2}
			},
			subpass:    0,
			attachment: 2,
		},
		{
			name: "second swapchain",
			mutate: func(c *RenderpassCreate) {
				c.Attachments = append(c.Attachments, NewAttachment(2, "swap2", AttachmentSwapchain))
			},
			subpass:    NoIndex,
			attachment: 2,
		},
		{
			name:       "subpass out of declaration order",
			mutate:     func(c *RenderpassCreate) { c.Subpasses[0].Binding = 3 },
			subpass:    3,
			attachment: NoIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := depthSwapchainCreate()
			tt.mutate(&c)
			b := NewHeadlessBackend()

			rp, err := NewRenderpass(c, b, testSurface)
			if rp != nil {
				t.Fatal("invalid create produced a render pass")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("err = %v, want ErrConfiguration", err)
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("err %T is not a *ConfigurationError", err)
			}
			if ce.Subpass != tt.subpass || ce.Attachment != tt.attachment {
				t.Fatalf("error names subpass %d attachment %d, want %d %d (%v)", ce.Subpass, ce.Attachment, tt.subpass, tt.attachment, err)
			}
			if b.Live() != 0 || len(b.Ops()) != 0 {
				t.Fatalf("backend touched on invalid create: %v", b.Ops())
			}
		})
	}
}

func TestRenderpassDeferredSizeNeedsSurface(t *testing.T) {
	b := NewHeadlessBackend()
	_, err := NewRenderpass(depthSwapchainCreate(), b, Surface{SurfaceFormat: FormatB8G8R8A8Unorm, DepthFormat: FormatD32Sfloat})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}

	c := depthSwapchainCreate()
	c.Width, c.Height = 256, 128
	rp, err := NewRenderpass(c, b, Surface{SurfaceFormat: FormatB8G8R8A8Unorm, DepthFormat: FormatD32Sfloat})
	if err != nil {
		t.Fatal(err)
	}
	if rp.Extent() != (Extent{Width: 256, Height: 128}) {
		t.Fatalf("extent = %v", rp.Extent())
	}
}

func TestRenderpassBackendFailure(t *testing.T) {
	b := NewHeadlessBackend()
	cause := errors.New("out of device memory")
	b.FailNextCreate(cause)

	rp, err := NewRenderpass(depthSwapchainCreate(), b, testSurface)
	if rp != nil {
		t.Fatal("failed compile returned a render pass")
	}
	var re *ResourceAcquisitionError
	if !errors.As(err, &re) || !errors.Is(err, cause) {
		t.Fatalf("err = %v, want ResourceAcquisitionError wrapping cause", err)
	}
}

func TestDependenciesFollowSharedAttachments(t *testing.T) {
	c := RenderpassCreate{
		Attachments: []Attachment{
			NewAttachment(0, "depth", AttachmentDepth),
			NewAttachment(1, "swapchain", AttachmentSwapchain),
			NewAttachment(2, "diffuse", AttachmentImage),
			NewAttachment(3, "normals", AttachmentImage),
		},
		Subpasses: []SubpassType{
			NewSubpass(0, 0, 2, 3), // geometry
			NewSubpass(1, 1),       // unrelated overlay
			NewSubpass(2, 2, 1),    // lighting reads diffuse, writes swapchain
		},
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	deps := c.Dependencies()
	var internal []SubpassDependency
	for _, d := range deps {
		if d.Src != SubpassExternal && d.Dst != SubpassExternal {
			internal = append(internal, d)
		}
	}
	if len(internal) != 2 {
		t.Fatalf("internal dependencies = %+v, want 0->2 and 1->2", internal)
	}
	if internal[0].Src != 0 || internal[0].Dst != 2 || internal[0].Attachments[0] != 2 {
		t.Fatalf("first dependency = %+v", internal[0])
	}
	if internal[1].Src != 1 || internal[1].Dst != 2 || internal[1].Attachments[0] != 1 {
		t.Fatalf("second dependency = %+v", internal[1])
	}
	if internal[0].SrcAccess&AccessColourAttachmentWrite == 0 || internal[0].DstAccess&AccessInputAttachmentRead == 0 {
		t.Fatalf("colour dependency masks = %+v", internal[0])
	}

	first, last := deps[0], deps[len(deps)-1]
	if first.Src != SubpassExternal || first.Dst != 0 {
		t.Fatalf("leading external dependency = %+v", first)
	}
	if last.Src != 2 || last.Dst != SubpassExternal {
		t.Fatalf("trailing external dependency = %+v", last)
	}
}

func TestDependenciesDepthSharing(t *testing.T) {
	c := RenderpassCreate{
		Attachments: []Attachment{
			NewAttachment(0, "depth", AttachmentDepth),
			NewAttachment(1, "swapchain", AttachmentSwapchain),
		},
		Subpasses: []SubpassType{NewSubpass(0, 0), NewSubpass(1, 0, 1)},
	}
	deps := c.Dependencies()
	d := deps[1]
	if d.Src != 0 || d.Dst != 1 {
		t.Fatalf("dependency = %+v", d)
	}
	if d.SrcStage&StageLateFragmentTests == 0 || d.DstStage&StageEarlyFragmentTests == 0 {
		t.Fatalf("depth dependency stages = %+v", d)
	}
}
