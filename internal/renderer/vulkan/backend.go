// Package vulkan compiles render pass descriptions into Vulkan objects and
// records frames into command buffers supplied by the windowing layer.
package vulkan

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/renderer"
)

// FrameTarget hands out per-frame command buffers and framebuffers. It is
// implemented by whatever owns the swapchain.
type FrameTarget interface {
	Acquire() (vk.CommandBuffer, error)
	Framebuffer(pass vk.RenderPass) (vk.Framebuffer, error)
	Submit(cmd vk.CommandBuffer) error
}

// Backend implements renderer.Backend on a logical device.
type Backend struct {
	device vk.Device
	target FrameTarget
	log    *zap.Logger

	mu        sync.Mutex
	passes    map[vk.RenderPass]*renderer.Description
	pipelines map[string]vk.Pipeline

	cmd       vk.CommandBuffer
	recording bool
	inPass    bool
}

var _ renderer.Backend = (*Backend)(nil)

func NewBackend(device vk.Device, target FrameTarget, log *zap.Logger) *Backend {
	return &Backend{
		device:    device,
		target:    target,
		log:       log,
		passes:    make(map[vk.RenderPass]*renderer.Description),
		pipelines: make(map[string]vk.Pipeline),
	}
}

// BindPipeline makes draws naming name bind p first.
func (b *Backend) BindPipeline(name string, p vk.Pipeline) {
	b.mu.Lock()
	b.pipelines[name] = p
	b.mu.Unlock()
}

func (b *Backend) CreateRenderPass(desc *renderer.Description) (renderer.Handle, error) {
	info, err := createInfo(desc)
	if err != nil {
		return nil, err
	}
	var pass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(b.device, info, nil, &pass)); err != nil {
		return nil, fmt.Errorf("vkCreateRenderPass: %w", err)
	}

	b.mu.Lock()
	b.passes[pass] = desc
	b.mu.Unlock()

	b.log.Debug("render pass created",
		zap.Int("attachments", len(desc.Attachments)),
		zap.Int("subpasses", len(desc.Subpasses)),
		zap.Int("dependencies", len(desc.Dependencies)))
	return pass, nil
}

func (b *Backend) DestroyRenderPass(h renderer.Handle) error {
	pass, ok := h.(vk.RenderPass)
	if !ok {
		return fmt.Errorf("destroy render pass: foreign handle %T", h)
	}
	b.mu.Lock()
	_, known := b.passes[pass]
	delete(b.passes, pass)
	b.mu.Unlock()
	if !known {
		return errors.New("destroy render pass: unknown handle")
	}
	vk.DestroyRenderPass(b.device, pass, nil)
	return nil
}

func (b *Backend) BeginFrame() error {
	if b.recording {
		return errors.New("begin frame: previous frame still recording")
	}
	cmd, err := b.target.Acquire()
	if err != nil {
		return fmt.Errorf("acquire frame: %w", err)
	}
	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(cmd, &begin)); err != nil {
		return fmt.Errorf("vkBeginCommandBuffer: %w", err)
	}
	b.cmd = cmd
	b.recording = true
	return nil
}

func (b *Backend) BeginRenderPass(h renderer.Handle, extent renderer.Extent, clear []mgl32.Vec4) error {
	pass, ok := h.(vk.RenderPass)
	if !ok {
		return fmt.Errorf("begin render pass: foreign handle %T", h)
	}
	b.mu.Lock()
	desc, known := b.passes[pass]
	b.mu.Unlock()
	if !known {
		return errors.New("begin render pass: unknown handle")
	}
	if !b.recording || b.inPass {
		return errors.New("begin render pass outside a frame or inside another pass")
	}
	fb, err := b.target.Framebuffer(pass)
	if err != nil {
		return fmt.Errorf("framebuffer: %w", err)
	}

	values := make([]vk.ClearValue, len(desc.Attachments))
	for i, a := range desc.Attachments {
		if a.Kind == renderer.AttachmentDepth {
			values[i].SetDepthStencil(1, 0)
			continue
		}
		c := a.ClearColour
		if i < len(clear) {
			c = clear[i]
		}
		values[i].SetColor(c[:])
	}

	vk.CmdBeginRenderPass(b.cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
		},
		ClearValueCount: uint32(len(values)),
		PClearValues:    values,
	}, vk.SubpassContentsInline)
	b.inPass = true
	return nil
}

func (b *Backend) NextSubpass() error {
	if !b.inPass {
		return errors.New("next subpass outside a render pass")
	}
	vk.CmdNextSubpass(b.cmd, vk.SubpassContentsInline)
	return nil
}

func (b *Backend) Draw(call renderer.DrawCall) error {
	if !b.inPass {
		return errors.New("draw outside a render pass")
	}
	b.mu.Lock()
	p, ok := b.pipelines[call.Pipeline]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("draw: pipeline %q not bound", call.Pipeline)
	}
	vk.CmdBindPipeline(b.cmd, vk.PipelineBindPointGraphics, p)
	vk.CmdDraw(b.cmd, call.VertexCount, max(call.InstanceCount, 1), 0, 0)
	return nil
}

func (b *Backend) EndRenderPass() error {
	if !b.inPass {
		return errors.New("end render pass without a pass")
	}
	vk.CmdEndRenderPass(b.cmd)
	b.inPass = false
	return nil
}

func (b *Backend) EndFrame() error {
	if !b.recording {
		return errors.New("end frame without a frame")
	}
	b.recording = false
	if err := vk.Error(vk.EndCommandBuffer(b.cmd)); err != nil {
		return fmt.Errorf("vkEndCommandBuffer: %w", err)
	}
	return b.target.Submit(b.cmd)
}

// Close destroys render passes that were never released.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for pass := range b.passes {
		vk.DestroyRenderPass(b.device, pass, nil)
	}
	if n := len(b.passes); n > 0 {
		b.log.Warn("render passes leaked until backend close", zap.Int("count", n))
	}
	clear(b.passes)
	return nil
}
