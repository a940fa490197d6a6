package scenes

import (
	"time"

	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/core/event"
	"github.com/acidgo/acid/internal/particles"
	"github.com/acidgo/acid/internal/physics"
)

// Scenes is the Normal-stage module holding the active scene.
type Scenes struct {
	current *Scene
	bus     *event.Bus
	log     *zap.Logger
}

func NewScenes(bus *event.Bus, log *zap.Logger) *Scenes {
	return &Scenes{bus: bus, log: log}
}

// Current returns the active scene, or nil.
func (m *Scenes) Current() *Scene { return m.current }

// SetScene closes the active scene and activates s. A nil s leaves no
// scene active.
func (m *Scenes) SetScene(s *Scene) error {
	var err error
	if m.current != nil && m.current != s {
		err = m.current.Close()
		m.log.Info("scene closed", zap.String("scene", m.current.Name()))
	}
	m.current = s
	if s == nil {
		return err
	}
	m.log.Info("scene active", zap.String("scene", s.Name()), zap.Int("entities", s.Len()))
	if m.bus != nil {
		event.Emit(m.bus, event.SceneLoaded{Name: s.Name(), Entities: s.Len()})
	}
	return err
}

func (m *Scenes) Update(dt time.Duration) error {
	if m.current == nil {
		return nil
	}
	return m.current.Update(dt)
}

// Close releases the active scene.
func (m *Scenes) Close() error {
	return m.SetScene(nil)
}

// Space returns the active scene for the physics module, or a nil interface.
func (m *Scenes) Space() physics.Space {
	if m.current == nil {
		return nil
	}
	return m.current
}

// Source returns the active scene for the particles module, or a nil
// interface.
func (m *Scenes) Source() particles.Source {
	if m.current == nil {
		return nil
	}
	return m.current
}
