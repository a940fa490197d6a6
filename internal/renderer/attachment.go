package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// AttachmentKind says what an attachment's image is used for.
type AttachmentKind uint8

const (
	AttachmentImage     AttachmentKind = iota // offscreen colour target
	AttachmentDepth                           // depth/stencil target
	AttachmentSwapchain                       // the presented surface image
)

func (k AttachmentKind) String() string {
	switch k {
	case AttachmentImage:
		return "image"
	case AttachmentDepth:
		return "depth"
	case AttachmentSwapchain:
		return "swapchain"
	}
	return fmt.Sprintf("attachment_kind(%d)", uint8(k))
}

// ParseAttachmentKind resolves the names used by layout files.
func ParseAttachmentKind(s string) (AttachmentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "":
		return AttachmentImage, nil
	case "depth":
		return AttachmentDepth, nil
	case "swapchain":
		return AttachmentSwapchain, nil
	}
	return AttachmentImage, fmt.Errorf("unknown attachment kind %q", s)
}

// Format is a backend-neutral pixel format.
type Format uint8

const (
	FormatUndefined Format = iota // resolved from the surface at compile time
	FormatR8G8B8A8Unorm
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8Srgb
	FormatR16G16B16A16Sfloat
	FormatR32G32B32A32Sfloat
	FormatD32Sfloat
	FormatD24UnormS8Uint
	FormatD32SfloatS8Uint
)

var formatNames = map[Format]string{
	FormatUndefined:          "undefined",
	FormatR8G8B8A8Unorm:      "r8g8b8a8_unorm",
	FormatB8G8R8A8Unorm:      "b8g8r8a8_unorm",
	FormatB8G8R8A8Srgb:       "b8g8r8a8_srgb",
	FormatR16G16B16A16Sfloat: "r16g16b16a16_sfloat",
	FormatR32G32B32A32Sfloat: "r32g32b32a32_sfloat",
	FormatD32Sfloat:          "d32_sfloat",
	FormatD24UnormS8Uint:     "d24_unorm_s8_uint",
	FormatD32SfloatS8Uint:    "d32_sfloat_s8_uint",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// IsDepth reports whether f carries depth.
func (f Format) IsDepth() bool {
	return f == FormatD32Sfloat || f == FormatD24UnormS8Uint || f == FormatD32SfloatS8Uint
}

// ParseFormat resolves a format name such as "b8g8r8a8_unorm".
func ParseFormat(s string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return FormatUndefined, nil
	}
	for f, n := range formatNames {
		if n == key {
			return f, nil
		}
	}
	return FormatUndefined, fmt.Errorf("unknown format %q", s)
}

// Attachment is one image resource of a render pass. Binding is unique within
// the pass and is what subpasses refer to.
type Attachment struct {
	Binding      uint32
	Name         string
	Kind         AttachmentKind
	Format       Format // FormatUndefined: surface format (swapchain), depth format (depth), RGBA8 (image)
	Multisampled bool
	ClearColour  mgl32.Vec4
}

// NewAttachment builds an attachment with the default format for its kind.
func NewAttachment(binding uint32, name string, kind AttachmentKind) Attachment {
	return Attachment{
		Binding:     binding,
		Name:        name,
		Kind:        kind,
		ClearColour: mgl32.Vec4{0, 0, 0, 1},
	}
}

// SubpassType is one stage of a render pass writing to the attachments listed
// by binding.
type SubpassType struct {
	Binding            uint32
	AttachmentBindings []uint32
}

func NewSubpass(binding uint32, attachments ...uint32) SubpassType {
	return SubpassType{Binding: binding, AttachmentBindings: attachments}
}
