package renderer

import "github.com/go-gl/mathgl/mgl32"

// Extent is a width/height pair in pixels.
type Extent struct {
	Width, Height uint32
}

// IsZero reports whether either side is unset.
func (e Extent) IsZero() bool { return e.Width == 0 || e.Height == 0 }

// Surface describes the current presentation target. Render passes resolve
// their deferred sizes and formats against it.
type Surface struct {
	Extent        Extent
	SurfaceFormat Format
	DepthFormat   Format
	Samples       uint32 // sample count for multisampled attachments
}

// Handle is an opaque backend object (a vk.RenderPass for the Vulkan
// backend). Nil means "no object".
type Handle interface{}

// ImageLayout is the layout an attachment is left in.
type ImageLayout uint8

const (
	LayoutUndefined ImageLayout = iota
	LayoutColourAttachment
	LayoutDepthStencilAttachment
	LayoutShaderReadOnly
	LayoutPresentSrc
)

// PipelineStage is a bitmask of GPU pipeline stages used by dependencies.
type PipelineStage uint32

const (
	StageTopOfPipe PipelineStage = 1 << iota
	StageEarlyFragmentTests
	StageFragmentShader
	StageLateFragmentTests
	StageColourAttachmentOutput
	StageBottomOfPipe
)

// Access is a bitmask of memory access kinds used by dependencies.
type Access uint32

const (
	AccessInputAttachmentRead Access = 1 << iota
	AccessShaderRead
	AccessColourAttachmentRead
	AccessColourAttachmentWrite
	AccessDepthStencilRead
	AccessDepthStencilWrite
	AccessMemoryRead
)

// SubpassExternal stands for work outside the render pass in a dependency.
const SubpassExternal = ^uint32(0)

// SubpassDependency orders subpass Dst after subpass Src. Src and Dst are
// declaration positions or SubpassExternal. Attachments lists the shared
// attachment bindings that created the dependency.
type SubpassDependency struct {
	Src, Dst    uint32
	SrcStage    PipelineStage
	DstStage    PipelineStage
	SrcAccess   Access
	DstAccess   Access
	ByRegion    bool
	Attachments []uint32
}

// AttachmentDescription is an attachment with every deferred choice resolved.
type AttachmentDescription struct {
	Binding     uint32
	Name        string
	Kind        AttachmentKind
	Format      Format
	Samples     uint32
	FinalLayout ImageLayout
	ClearColour mgl32.Vec4
}

// AttachmentReference points at an attachment by its position in
// Description.Attachments.
type AttachmentReference struct {
	Index  uint32
	Layout ImageLayout
}

// SubpassDescription lists the colour and depth targets of one subpass.
type SubpassDescription struct {
	Binding uint32
	Colour  []AttachmentReference
	Depth   *AttachmentReference
}

// Description is the backend-neutral compiled form of a RenderpassCreate.
type Description struct {
	Extent       Extent
	Attachments  []AttachmentDescription
	Subpasses    []SubpassDescription
	Dependencies []SubpassDependency
}

// Compiler turns descriptions into native render pass objects.
type Compiler interface {
	CreateRenderPass(desc *Description) (Handle, error)
	DestroyRenderPass(h Handle) error
}

// DrawCall is one draw recorded into the current subpass.
type DrawCall struct {
	Pipeline      string
	VertexCount   uint32
	InstanceCount uint32
	Model         mgl32.Mat4
	Colour        mgl32.Vec4
}

// Recorder records one frame of GPU work.
type Recorder interface {
	BeginFrame() error
	BeginRenderPass(h Handle, extent Extent, clear []mgl32.Vec4) error
	NextSubpass() error
	Draw(call DrawCall) error
	EndRenderPass() error
	EndFrame() error
}

// Backend is what the Renderer module drives.
type Backend interface {
	Compiler
	Recorder
}
