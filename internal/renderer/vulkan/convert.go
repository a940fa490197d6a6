package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/acidgo/acid/internal/renderer"
)

var formats = map[renderer.Format]vk.Format{
	renderer.FormatUndefined:          vk.FormatUndefined,
	renderer.FormatR8G8B8A8Unorm:      vk.FormatR8g8b8a8Unorm,
	renderer.FormatB8G8R8A8Unorm:      vk.FormatB8g8r8a8Unorm,
	renderer.FormatB8G8R8A8Srgb:       vk.FormatB8g8r8a8Srgb,
	renderer.FormatR16G16B16A16Sfloat: vk.FormatR16g16b16a16Sfloat,
	renderer.FormatR32G32B32A32Sfloat: vk.FormatR32g32b32a32Sfloat,
	renderer.FormatD32Sfloat:          vk.FormatD32Sfloat,
	renderer.FormatD24UnormS8Uint:     vk.FormatD24UnormS8Uint,
	renderer.FormatD32SfloatS8Uint:    vk.FormatD32SfloatS8Uint,
}

func toFormat(f renderer.Format) (vk.Format, error) {
	v, ok := formats[f]
	if !ok {
		return vk.FormatUndefined, fmt.Errorf("no vulkan format for %s", f)
	}
	return v, nil
}

func toLayout(l renderer.ImageLayout) vk.ImageLayout {
	switch l {
	case renderer.LayoutColourAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case renderer.LayoutDepthStencilAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case renderer.LayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case renderer.LayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

func toSamples(n uint32) vk.SampleCountFlagBits {
	switch {
	case n >= 64:
		return vk.SampleCount64Bit
	case n >= 32:
		return vk.SampleCount32Bit
	case n >= 16:
		return vk.SampleCount16Bit
	case n >= 8:
		return vk.SampleCount8Bit
	case n >= 4:
		return vk.SampleCount4Bit
	case n >= 2:
		return vk.SampleCount2Bit
	}
	return vk.SampleCount1Bit
}

var stageBits = []struct {
	from renderer.PipelineStage
	to   vk.PipelineStageFlagBits
}{
	{renderer.StageTopOfPipe, vk.PipelineStageTopOfPipeBit},
	{renderer.StageEarlyFragmentTests, vk.PipelineStageEarlyFragmentTestsBit},
	{renderer.StageFragmentShader, vk.PipelineStageFragmentShaderBit},
	{renderer.StageLateFragmentTests, vk.PipelineStageLateFragmentTestsBit},
	{renderer.StageColourAttachmentOutput, vk.PipelineStageColorAttachmentOutputBit},
	{renderer.StageBottomOfPipe, vk.PipelineStageBottomOfPipeBit},
}

func toStageMask(s renderer.PipelineStage) vk.PipelineStageFlags {
	var mask vk.PipelineStageFlags
	for _, b := range stageBits {
		if s&b.from != 0 {
			mask |= vk.PipelineStageFlags(b.to)
		}
	}
	return mask
}

var accessBits = []struct {
	from renderer.Access
	to   vk.AccessFlagBits
}{
	{renderer.AccessInputAttachmentRead, vk.AccessInputAttachmentReadBit},
	{renderer.AccessShaderRead, vk.AccessShaderReadBit},
	{renderer.AccessColourAttachmentRead, vk.AccessColorAttachmentReadBit},
	{renderer.AccessColourAttachmentWrite, vk.AccessColorAttachmentWriteBit},
	{renderer.AccessDepthStencilRead, vk.AccessDepthStencilAttachmentReadBit},
	{renderer.AccessDepthStencilWrite, vk.AccessDepthStencilAttachmentWriteBit},
	{renderer.AccessMemoryRead, vk.AccessMemoryReadBit},
}

func toAccessMask(a renderer.Access) vk.AccessFlags {
	var mask vk.AccessFlags
	for _, b := range accessBits {
		if a&b.from != 0 {
			mask |= vk.AccessFlags(b.to)
		}
	}
	return mask
}

func toReference(r renderer.AttachmentReference) vk.AttachmentReference {
	return vk.AttachmentReference{Attachment: r.Index, Layout: toLayout(r.Layout)}
}

// createInfo translates a description into the structures vkCreateRenderPass
// consumes. Every attachment is cleared on load; swapchain and image
// attachments are stored, depth is discarded after the pass.
func createInfo(desc *renderer.Description) (*vk.RenderPassCreateInfo, error) {
	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	for i, a := range desc.Attachments {
		f, err := toFormat(a.Format)
		if err != nil {
			return nil, fmt.Errorf("attachment %d (%s): %w", a.Binding, a.Name, err)
		}
		store := vk.AttachmentStoreOpStore
		if a.Kind == renderer.AttachmentDepth {
			store = vk.AttachmentStoreOpDontCare
		}
		attachments[i] = vk.AttachmentDescription{
			Format:         f,
			Samples:        toSamples(a.Samples),
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        store,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    toLayout(a.FinalLayout),
		}
	}

	subpasses := make([]vk.SubpassDescription, len(desc.Subpasses))
	for i, sp := range desc.Subpasses {
		colour := make([]vk.AttachmentReference, len(sp.Colour))
		for j, ref := range sp.Colour {
			colour[j] = toReference(ref)
		}
		sd := vk.SubpassDescription{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: uint32(len(colour)),
			PColorAttachments:    colour,
		}
		if sp.Depth != nil {
			depth := toReference(*sp.Depth)
			sd.PDepthStencilAttachment = &depth
		}
		subpasses[i] = sd
	}

	deps := make([]vk.SubpassDependency, len(desc.Dependencies))
	for i, d := range desc.Dependencies {
		var flags vk.DependencyFlags
		if d.ByRegion {
			flags = vk.DependencyFlags(vk.DependencyByRegionBit)
		}
		deps[i] = vk.SubpassDependency{
			SrcSubpass:      d.Src,
			DstSubpass:      d.Dst,
			SrcStageMask:    toStageMask(d.SrcStage),
			DstStageMask:    toStageMask(d.DstStage),
			SrcAccessMask:   toAccessMask(d.SrcAccess),
			DstAccessMask:   toAccessMask(d.DstAccess),
			DependencyFlags: flags,
		}
	}

	return &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(deps)),
		PDependencies:   deps,
	}, nil
}
