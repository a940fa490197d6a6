package renderer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// GraphicsStage addresses one subpass of one of the renderer's passes.
// Sub-renderers are ordered by it.
type GraphicsStage struct {
	Renderpass uint32
	Subpass    uint32
}

func (s GraphicsStage) Less(o GraphicsStage) bool {
	if s.Renderpass != o.Renderpass {
		return s.Renderpass < o.Renderpass
	}
	return s.Subpass < o.Subpass
}

func (s GraphicsStage) String() string {
	return fmt.Sprintf("%d.%d", s.Renderpass, s.Subpass)
}

// PipelineMode selects how fragment output maps to the subpass targets.
type PipelineMode uint8

const (
	ModePolygon PipelineMode = iota // one blended colour output
	ModeMRT                         // one output per colour attachment
)

// DepthMode selects depth testing and writing.
type DepthMode uint8

const (
	DepthNone DepthMode = iota
	DepthRead
	DepthWrite
	DepthReadWrite
)

type Topology uint8

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyPointList
)

type PolygonMode uint8

const (
	PolygonFill PolygonMode = iota
	PolygonLine
	PolygonPoint
)

type CullMode uint8

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

// VertexAttribute is one shader input of a vertex layout.
type VertexAttribute struct {
	Location uint32
	Format   Format
	Offset   uint32
}

// VertexInput describes one interleaved vertex buffer binding.
type VertexInput struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// PipelineCreate declares a graphics pipeline bound to one subpass.
type PipelineCreate struct {
	Name            string
	Stage           GraphicsStage
	Shaders         []string
	Vertex          VertexInput
	Mode            PipelineMode
	Depth           DepthMode
	Topology        Topology
	PolygonMode     PolygonMode
	CullMode        CullMode
	PushDescriptors bool
}

// Pipeline is a pipeline declaration checked against a compiled pass.
type Pipeline struct {
	PipelineCreate
	BlendAttachments int // colour blend states, one per colour target written
	ShaderStages     []string
}

var shaderStages = map[string]string{
	".vert": "vertex",
	".frag": "fragment",
	".geom": "geometry",
	".tesc": "tessellation_control",
	".tese": "tessellation_evaluation",
	".comp": "compute",
}

// NewPipeline validates c against pass, which must be the pass c.Stage names.
func NewPipeline(c PipelineCreate, pass *Renderpass) (*Pipeline, error) {
	sp := c.Stage.Subpass
	if c.Name == "" {
		return nil, configErr(sp, NoIndex, "pipeline has no name")
	}
	if int(sp) >= pass.SubpassCount() {
		return nil, configErr(sp, NoIndex, "pipeline %q targets a subpass the pass does not have (%d subpasses)", c.Name, pass.SubpassCount())
	}
	if len(c.Shaders) == 0 {
		return nil, configErr(sp, NoIndex, "pipeline %q has no shaders", c.Name)
	}

	p := &Pipeline{PipelineCreate: c}
	hasFragment := false
	for _, s := range c.Shaders {
		stage, ok := shaderStages[strings.ToLower(filepath.Ext(s))]
		if !ok {
			return nil, configErr(sp, NoIndex, "pipeline %q: cannot infer shader stage of %q", c.Name, s)
		}
		if stage == "fragment" {
			hasFragment = true
		}
		p.ShaderStages = append(p.ShaderStages, stage)
	}

	sd := pass.Description().Subpasses[sp]
	colour := len(sd.Colour)
	switch c.Mode {
	case ModeMRT:
		if colour == 0 {
			return nil, configErr(sp, NoIndex, "pipeline %q is MRT but the subpass has no colour targets", c.Name)
		}
		p.BlendAttachments = colour
	default:
		if colour > 0 {
			p.BlendAttachments = 1
		}
	}
	if colour > 0 && !hasFragment {
		return nil, configErr(sp, NoIndex, "pipeline %q writes colour targets without a fragment shader", c.Name)
	}
	if c.Depth != DepthNone && sd.Depth == nil {
		return nil, configErr(sp, NoIndex, "pipeline %q tests depth but the subpass has no depth attachment", c.Name)
	}
	return p, nil
}
