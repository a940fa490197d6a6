package vulkan

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/acidgo/acid/internal/renderer"
)

func TestCreateInfoDepthSwapchain(t *testing.T) {
	c := renderer.RenderpassCreate{
		Attachments: []renderer.Attachment{
			renderer.NewAttachment(0, "depth", renderer.AttachmentDepth),
			renderer.NewAttachment(1, "swapchain", renderer.AttachmentSwapchain),
		},
		Subpasses: []renderer.SubpassType{renderer.NewSubpass(0, 0, 1)},
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	desc, err := c.Describe(renderer.Surface{
		Extent:        renderer.Extent{Width: 640, Height: 480},
		SurfaceFormat: renderer.FormatB8G8R8A8Srgb,
		DepthFormat:   renderer.FormatD32Sfloat,
	})
	if err != nil {
		t.Fatal(err)
	}

	info, err := createInfo(desc)
	if err != nil {
		t.Fatal(err)
	}
	if info.AttachmentCount != 2 || info.SubpassCount != 1 || info.DependencyCount != 2 {
		t.Fatalf("counts = %d/%d/%d", info.AttachmentCount, info.SubpassCount, info.DependencyCount)
	}
	depth, swap := info.PAttachments[0], info.PAttachments[1]
	if depth.Format != vk.FormatD32Sfloat || depth.FinalLayout != vk.ImageLayoutDepthStencilAttachmentOptimal {
		t.Errorf("depth attachment = %+v", depth)
	}
	if depth.StoreOp != vk.AttachmentStoreOpDontCare {
		t.Error("depth should not be stored")
	}
	if swap.Format != vk.FormatB8g8r8a8Srgb || swap.FinalLayout != vk.ImageLayoutPresentSrc {
		t.Errorf("swapchain attachment = %+v", swap)
	}

	sp := info.PSubpasses[0]
	if sp.ColorAttachmentCount != 1 || sp.PColorAttachments[0].Attachment != 1 {
		t.Errorf("colour refs = %+v", sp.PColorAttachments)
	}
	if sp.PDepthStencilAttachment == nil || sp.PDepthStencilAttachment.Attachment != 0 {
		t.Errorf("depth ref = %+v", sp.PDepthStencilAttachment)
	}
	if info.PDependencies[0].SrcSubpass != vk.SubpassExternal {
		t.Errorf("first dependency src = %d", info.PDependencies[0].SrcSubpass)
	}
}

func TestMasks(t *testing.T) {
	got := toStageMask(renderer.StageColourAttachmentOutput | renderer.StageEarlyFragmentTests)
	want := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) |
		vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	if got != want {
		t.Errorf("stage mask = %#x, want %#x", got, want)
	}
	if toAccessMask(0) != 0 {
		t.Error("empty access mask not zero")
	}
	if toSamples(4) != vk.SampleCount4Bit || toSamples(0) != vk.SampleCount1Bit || toSamples(6) != vk.SampleCount4Bit {
		t.Error("sample count mapping")
	}
}

func TestUnknownFormatRejected(t *testing.T) {
	if _, err := toFormat(renderer.Format(200)); err == nil {
		t.Fatal("expected error for unmapped format")
	}
}
