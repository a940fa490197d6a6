package renderer

import (
	"slices"
)

// RenderpassCreate declares a render pass: ordered attachments, ordered
// subpasses and an optional size. Width or Height 0 means "use the surface
// extent".
type RenderpassCreate struct {
	Width, Height uint32
	Attachments   []Attachment
	Subpasses     []SubpassType
}

// Attachment returns the attachment with the given binding.
func (c *RenderpassCreate) Attachment(binding uint32) (Attachment, bool) {
	for _, a := range c.Attachments {
		if a.Binding == binding {
			return a, true
		}
	}
	return Attachment{}, false
}

// Deferred reports whether the pass takes its size from the surface.
func (c *RenderpassCreate) Deferred() bool {
	return c.Width == 0 || c.Height == 0
}

// Validate checks the description and returns the first *ConfigurationError.
func (c *RenderpassCreate) Validate() error {
	if len(c.Subpasses) == 0 {
		return configErr(NoIndex, NoIndex, "render pass declares no subpasses")
	}

	seen := make(map[uint32]AttachmentKind, len(c.Attachments))
	swapchains := 0
	for _, a := range c.Attachments {
		if _, dup := seen[a.Binding]; dup {
			return configErr(NoIndex, a.Binding, "duplicate attachment binding")
		}
		seen[a.Binding] = a.Kind
		switch a.Kind {
		case AttachmentSwapchain:
			swapchains++
			if swapchains > 1 {
				return configErr(NoIndex, a.Binding, "more than one swapchain attachment")
			}
		case AttachmentDepth:
			if a.Format != FormatUndefined && !a.Format.IsDepth() {
				return configErr(NoIndex, a.Binding, "depth attachment with colour format %s", a.Format)
			}
		case AttachmentImage:
			if a.Format.IsDepth() {
				return configErr(NoIndex, a.Binding, "image attachment with depth format %s", a.Format)
			}
		default:
			return configErr(NoIndex, a.Binding, "unknown attachment kind %s", a.Kind)
		}
	}

	for pos, s := range c.Subpasses {
		if s.Binding != uint32(pos) {
			return configErr(s.Binding, NoIndex, "declared at position %d; subpass bindings must follow declaration order", pos)
		}
		depth := 0
		for i, b := range s.AttachmentBindings {
			kind, ok := seen[b]
			if !ok {
				return configErr(s.Binding, b, "references an attachment that does not exist (have %d attachments)", len(c.Attachments))
			}
			if slices.Contains(s.AttachmentBindings[:i], b) {
				return configErr(s.Binding, b, "attachment listed twice")
			}
			if kind == AttachmentDepth {
				depth++
				if depth > 1 {
					return configErr(s.Binding, b, "subpass writes more than one depth attachment")
				}
			}
		}
	}
	return nil
}

// Dependencies derives the execution ordering between subpasses. Subpass N
// depends on every earlier subpass that shares an attachment with it; the
// pass as a whole is framed by external dependencies on both ends.
// Stage and access masks are conservative defaults.
func (c *RenderpassCreate) Dependencies() []SubpassDependency {
	if len(c.Subpasses) == 0 {
		return nil
	}
	kinds := make(map[uint32]AttachmentKind, len(c.Attachments))
	for _, a := range c.Attachments {
		kinds[a.Binding] = a.Kind
	}

	deps := []SubpassDependency{{
		Src:       SubpassExternal,
		Dst:       0,
		SrcStage:  StageBottomOfPipe,
		DstStage:  StageColourAttachmentOutput | StageEarlyFragmentTests,
		SrcAccess: AccessMemoryRead,
		DstAccess: AccessColourAttachmentRead | AccessColourAttachmentWrite |
			AccessDepthStencilRead | AccessDepthStencilWrite,
		ByRegion: true,
	}}

	for n := 1; n < len(c.Subpasses); n++ {
		for m := 0; m < n; m++ {
			shared := sharedBindings(c.Subpasses[m].AttachmentBindings, c.Subpasses[n].AttachmentBindings)
			if len(shared) == 0 {
				continue
			}
			d := SubpassDependency{Src: uint32(m), Dst: uint32(n), ByRegion: true, Attachments: shared}
			for _, b := range shared {
				if kinds[b] == AttachmentDepth {
					d.SrcStage |= StageLateFragmentTests
					d.DstStage |= StageEarlyFragmentTests | StageFragmentShader
					d.SrcAccess |= AccessDepthStencilWrite
					d.DstAccess |= AccessDepthStencilRead | AccessDepthStencilWrite | AccessInputAttachmentRead
				} else {
					d.SrcStage |= StageColourAttachmentOutput
					d.DstStage |= StageColourAttachmentOutput | StageFragmentShader
					d.SrcAccess |= AccessColourAttachmentWrite
					d.DstAccess |= AccessColourAttachmentRead | AccessColourAttachmentWrite | AccessInputAttachmentRead
				}
			}
			deps = append(deps, d)
		}
	}

	deps = append(deps, SubpassDependency{
		Src:      uint32(len(c.Subpasses) - 1),
		Dst:      SubpassExternal,
		SrcStage: StageColourAttachmentOutput | StageLateFragmentTests,
		DstStage: StageBottomOfPipe,
		SrcAccess: AccessColourAttachmentRead | AccessColourAttachmentWrite |
			AccessDepthStencilWrite,
		DstAccess: AccessMemoryRead,
		ByRegion:  true,
	})
	return deps
}

func sharedBindings(a, b []uint32) []uint32 {
	var out []uint32
	for _, x := range b {
		if slices.Contains(a, x) {
			out = append(out, x)
		}
	}
	return out
}

// Describe resolves the deferred size and formats against surface and
// produces the description handed to a Compiler. c must be valid.
func (c *RenderpassCreate) Describe(surface Surface) (*Description, error) {
	extent := Extent{Width: c.Width, Height: c.Height}
	if c.Deferred() {
		extent = surface.Extent
	}
	if extent.IsZero() {
		return nil, configErr(NoIndex, NoIndex, "render pass size is deferred but the surface extent is %dx%d", extent.Width, extent.Height)
	}

	desc := &Description{
		Extent:       extent,
		Attachments:  make([]AttachmentDescription, 0, len(c.Attachments)),
		Dependencies: c.Dependencies(),
	}
	position := make(map[uint32]uint32, len(c.Attachments))
	for i, a := range c.Attachments {
		position[a.Binding] = uint32(i)
		ad := AttachmentDescription{
			Binding:     a.Binding,
			Name:        a.Name,
			Kind:        a.Kind,
			Format:      a.Format,
			Samples:     1,
			ClearColour: a.ClearColour,
		}
		if a.Multisampled && surface.Samples > 1 {
			ad.Samples = surface.Samples
		}
		switch a.Kind {
		case AttachmentSwapchain:
			if ad.Format == FormatUndefined {
				ad.Format = surface.SurfaceFormat
			}
			ad.FinalLayout = LayoutPresentSrc
		case AttachmentDepth:
			if ad.Format == FormatUndefined {
				ad.Format = surface.DepthFormat
			}
			ad.FinalLayout = LayoutDepthStencilAttachment
		default:
			if ad.Format == FormatUndefined {
				ad.Format = FormatR8G8B8A8Unorm
			}
			ad.FinalLayout = LayoutShaderReadOnly
		}
		if ad.Format == FormatUndefined {
			return nil, configErr(NoIndex, a.Binding, "%s attachment format unresolved by surface", a.Kind)
		}
		desc.Attachments = append(desc.Attachments, ad)
	}

	for _, s := range c.Subpasses {
		sd := SubpassDescription{Binding: s.Binding}
		for _, b := range s.AttachmentBindings {
			idx := position[b]
			if c.Attachments[idx].Kind == AttachmentDepth {
				sd.Depth = &AttachmentReference{Index: idx, Layout: LayoutDepthStencilAttachment}
				continue
			}
			sd.Colour = append(sd.Colour, AttachmentReference{Index: idx, Layout: LayoutColourAttachment})
		}
		desc.Subpasses = append(desc.Subpasses, sd)
	}
	return desc, nil
}
