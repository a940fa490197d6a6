package data

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/acidgo/acid/internal/renderer"
)

// AttachmentEntry is one attachment of a render pass layout.
type AttachmentEntry struct {
	Binding      uint32      `yaml:"binding"`
	Name         string      `yaml:"name"`
	Type         string      `yaml:"type"` // image, depth, swapchain
	Format       string      `yaml:"format"`
	Multisampled bool        `yaml:"multisampled"`
	ClearColour  *[4]float32 `yaml:"clear_colour"` // nil keeps opaque black
}

type SubpassEntry struct {
	Binding     uint32   `yaml:"binding"`
	Attachments []uint32 `yaml:"attachments"`
}

type RenderpassEntry struct {
	Width       uint32            `yaml:"width"` // 0 follows the surface
	Height      uint32            `yaml:"height"`
	Attachments []AttachmentEntry `yaml:"attachments"`
	Subpasses   []SubpassEntry    `yaml:"subpasses"`
}

// PipelineEntry declares a pipeline at Stage [renderpass, subpass].
type PipelineEntry struct {
	Name            string    `yaml:"name"`
	Stage           [2]uint32 `yaml:"stage"`
	Shaders         []string  `yaml:"shaders"`
	Mode            string    `yaml:"mode"`  // polygon, mrt
	Depth           string    `yaml:"depth"` // none, read, write, read_write
	Topology        string    `yaml:"topology"`
	PolygonMode     string    `yaml:"polygon_mode"`
	CullMode        string    `yaml:"cull_mode"`
	PushDescriptors bool      `yaml:"push_descriptors"`
}

// LayoutEntry is a named set of render passes and their pipelines.
type LayoutEntry struct {
	Name         string            `yaml:"name"`
	Renderpasses []RenderpassEntry `yaml:"renderpasses"`
	Pipelines    []PipelineEntry   `yaml:"pipelines"`
}

// LayoutTable provides lookup of render layouts by name.
type LayoutTable struct {
	layouts map[string]*LayoutEntry
}

// LoadLayoutTable loads renderpasses.yaml.
func LoadLayoutTable(path string) (*LayoutTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read render layouts: %w", err)
	}
	var entries []LayoutEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse render layouts: %w", err)
	}
	t := &LayoutTable{layouts: make(map[string]*LayoutEntry, len(entries))}
	for i := range entries {
		e := &entries[i]
		if _, dup := t.layouts[e.Name]; dup {
			return nil, fmt.Errorf("render layout %q defined twice", e.Name)
		}
		t.layouts[e.Name] = e
	}
	return t, nil
}

// Get returns the layout with the given name, or nil if none.
func (t *LayoutTable) Get(name string) *LayoutEntry {
	return t.layouts[name]
}

// Names returns the layout names, sorted.
func (t *LayoutTable) Names() []string {
	names := make([]string, 0, len(t.layouts))
	for n := range t.layouts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of layouts loaded.
func (t *LayoutTable) Count() int {
	return len(t.layouts)
}

// Creates converts the layout's passes. Structural checks are left to
// RenderpassCreate.Validate.
func (e *LayoutEntry) Creates() ([]renderer.RenderpassCreate, error) {
	out := make([]renderer.RenderpassCreate, 0, len(e.Renderpasses))
	for i, rp := range e.Renderpasses {
		c := renderer.RenderpassCreate{Width: rp.Width, Height: rp.Height}
		for _, a := range rp.Attachments {
			kind, err := renderer.ParseAttachmentKind(a.Type)
			if err != nil {
				return nil, fmt.Errorf("layout %q pass %d: %w", e.Name, i, err)
			}
			att := renderer.NewAttachment(a.Binding, a.Name, kind)
			if a.Format != "" {
				f, err := renderer.ParseFormat(a.Format)
				if err != nil {
					return nil, fmt.Errorf("layout %q pass %d: %w", e.Name, i, err)
				}
				att.Format = f
			}
			att.Multisampled = a.Multisampled
			if a.ClearColour != nil {
				att.ClearColour = mgl32.Vec4(*a.ClearColour)
			}
			c.Attachments = append(c.Attachments, att)
		}
		for _, s := range rp.Subpasses {
			c.Subpasses = append(c.Subpasses, renderer.NewSubpass(s.Binding, s.Attachments...))
		}
		out = append(out, c)
	}
	return out, nil
}

func lookup[T any](field, value string, table map[string]T) (T, error) {
	v, ok := table[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s %q", field, value)
	}
	return v, nil
}

var (
	pipelineModes = map[string]renderer.PipelineMode{"": renderer.ModePolygon, "polygon": renderer.ModePolygon, "mrt": renderer.ModeMRT}
	depthModes    = map[string]renderer.DepthMode{
		"": renderer.DepthNone, "none": renderer.DepthNone, "read": renderer.DepthRead,
		"write": renderer.DepthWrite, "read_write": renderer.DepthReadWrite,
	}
	topologies = map[string]renderer.Topology{
		"": renderer.TopologyTriangleList, "triangle_list": renderer.TopologyTriangleList,
		"triangle_strip": renderer.TopologyTriangleStrip, "line_list": renderer.TopologyLineList,
		"point_list": renderer.TopologyPointList,
	}
	polygonModes = map[string]renderer.PolygonMode{"": renderer.PolygonFill, "fill": renderer.PolygonFill, "line": renderer.PolygonLine, "point": renderer.PolygonPoint}
	cullModes    = map[string]renderer.CullMode{"": renderer.CullBack, "back": renderer.CullBack, "front": renderer.CullFront, "none": renderer.CullNone}
)

// PipelineCreates converts the layout's pipeline declarations.
func (e *LayoutEntry) PipelineCreates() ([]renderer.PipelineCreate, error) {
	out := make([]renderer.PipelineCreate, 0, len(e.Pipelines))
	for _, p := range e.Pipelines {
		c := renderer.PipelineCreate{
			Name:            p.Name,
			Stage:           renderer.GraphicsStage{Renderpass: p.Stage[0], Subpass: p.Stage[1]},
			Shaders:         p.Shaders,
			PushDescriptors: p.PushDescriptors,
		}
		var err error
		if c.Mode, err = lookup("pipeline mode", p.Mode, pipelineModes); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
		}
		if c.Depth, err = lookup("depth mode", p.Depth, depthModes); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
		}
		if c.Topology, err = lookup("topology", p.Topology, topologies); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
		}
		if c.PolygonMode, err = lookup("polygon mode", p.PolygonMode, polygonModes); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
		}
		if c.CullMode, err = lookup("cull mode", p.CullMode, cullModes); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
		}
		out = append(out, c)
	}
	return out, nil
}
