package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/data"
	"github.com/acidgo/acid/internal/renderer"
)

// SubrenderFactory builds the sub-renderer drawing with the named pipeline.
type SubrenderFactory func(pipeline string) renderer.Subrender

// LayoutManager is a RenderManager built from a render layout table entry.
// On Start it validates every pipeline of the layout and attaches the
// sub-renderer bound to it.
type LayoutManager struct {
	name      string
	creates   []renderer.RenderpassCreate
	pipelines []renderer.PipelineCreate
	factories map[string]SubrenderFactory
	log       *zap.Logger
}

func NewLayoutManager(layout *data.LayoutEntry, log *zap.Logger) (*LayoutManager, error) {
	creates, err := layout.Creates()
	if err != nil {
		return nil, err
	}
	pipelines, err := layout.PipelineCreates()
	if err != nil {
		return nil, err
	}
	return &LayoutManager{
		name:      layout.Name,
		creates:   creates,
		pipelines: pipelines,
		factories: make(map[string]SubrenderFactory),
		log:       log,
	}, nil
}

// Bind attaches f to the pipeline with the given name. Binding after the
// renderer started has no effect until the manager is set again.
func (m *LayoutManager) Bind(pipeline string, f SubrenderFactory) {
	m.factories[pipeline] = f
}

func (m *LayoutManager) RenderpassCreates() []renderer.RenderpassCreate {
	return m.creates
}

func (m *LayoutManager) Start(r *renderer.Renderer) error {
	for _, c := range m.pipelines {
		if _, err := r.AddPipeline(c); err != nil {
			return fmt.Errorf("layout %q pipeline %q: %w", m.name, c.Name, err)
		}
		f, ok := m.factories[c.Name]
		if !ok {
			m.log.Warn("pipeline has no sub-renderer", zap.String("layout", m.name), zap.String("pipeline", c.Name))
			continue
		}
		if err := r.AddSubrender(c.Stage, f(c.Name)); err != nil {
			return fmt.Errorf("layout %q pipeline %q: %w", m.name, c.Name, err)
		}
	}
	m.log.Info("render layout started",
		zap.String("layout", m.name),
		zap.Int("renderpasses", len(m.creates)),
		zap.Int("pipelines", len(m.pipelines)))
	return nil
}

func (m *LayoutManager) Update(time.Duration) error { return nil }
