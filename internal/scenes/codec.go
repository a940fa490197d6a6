package scenes

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/core/ecs"
	"github.com/acidgo/acid/internal/core/event"
	"github.com/acidgo/acid/internal/math3d"
	"github.com/acidgo/acid/internal/metadata"
	"github.com/acidgo/acid/internal/particles"
	"github.com/acidgo/acid/internal/physics"
)

// MarshalMetadata writes the scene name and every entity with its
// serialisable components. Behaviours are code and are not written.
func (s *Scene) MarshalMetadata(n *metadata.Node) {
	metadata.Set(n, "name", s.name)
	list := n.SetChild("entities")
	for _, id := range s.Entities() {
		s.marshalEntity(id, list.Append())
	}
}

func (s *Scene) marshalEntity(id ecs.EntityID, n *metadata.Node) {
	metadata.Set(n, "name", s.EntityName(id))
	if t, ok := s.transforms.Get(id); ok {
		metadata.SetObject(n, "transform", *t)
	}
	if rb, ok := s.bodies.Get(id); ok {
		b := n.SetChild("rigidBody")
		metadata.Set(b, "mass", rb.Mass)
		math3d.SetVec3(b, "velocity", rb.Velocity)
		metadata.Set(b, "kinematic", rb.Kinematic)
		metadata.Set(b, "ignoreGravity", rb.IgnoreGravity)
	}
	if c, ok := s.colliders.Get(id); ok {
		cn := n.SetChild("collider")
		metadata.Set(cn, "type", physics.KindOf(c).String())
		c.MarshalMetadata(cn)
	}
	if e, ok := s.emitters.Get(id); ok {
		metadata.SetObject(n, "emitter", e)
	}
}

// Unmarshal builds a scene from metadata written by MarshalMetadata.
func Unmarshal(n *metadata.Node, bus *event.Bus, log *zap.Logger) (*Scene, error) {
	var name string
	if err := metadata.Require(n, "name", &name); err != nil {
		return nil, err
	}
	s := NewScene(name, bus, log)
	if list := n.Child("entities"); list != nil {
		for i, en := range list.Children {
			if err := s.unmarshalEntity(en); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("scene %q entity %d: %w", name, i, err)
			}
		}
	}
	return s, nil
}

func (s *Scene) unmarshalEntity(n *metadata.Node) error {
	var name string
	if err := metadata.Get(n, "name", &name); err != nil {
		return err
	}
	id := s.CreateEntity(name)

	t, _ := s.transforms.Get(id)
	if err := metadata.GetObject(n, "transform", t); err != nil {
		return err
	}

	if b := n.Child("rigidBody"); b != nil {
		rb := &physics.RigidBody{}
		if err := metadata.Get(b, "mass", &rb.Mass); err != nil {
			return err
		}
		if err := math3d.GetVec3(b, "velocity", &rb.Velocity); err != nil {
			return err
		}
		if err := metadata.Get(b, "kinematic", &rb.Kinematic); err != nil {
			return err
		}
		if err := metadata.Get(b, "ignoreGravity", &rb.IgnoreGravity); err != nil {
			return err
		}
		s.bodies.Set(id, rb)
	}

	if cn := n.Child("collider"); cn != nil {
		var kind string
		if err := metadata.Require(cn, "type", &kind); err != nil {
			return err
		}
		k, err := physics.ParseShapeKind(kind)
		if err != nil {
			return err
		}
		c, err := physics.New(k)
		if err != nil {
			return err
		}
		if err := c.UnmarshalMetadata(cn); err != nil {
			_ = c.Close()
			return fmt.Errorf("collider: %w", err)
		}
		if err := s.AddCollider(id, c); err != nil {
			return err
		}
	}

	if en := n.Child("emitter"); en != nil {
		e := &particles.Emitter{}
		if err := e.UnmarshalMetadata(en); err != nil {
			return fmt.Errorf("emitter: %w", err)
		}
		s.emitters.Set(id, e)
	}
	return nil
}

// LoadFile reads a YAML scene file.
func LoadFile(path string, bus *event.Bus, log *zap.Logger) (*Scene, error) {
	n, err := metadata.LoadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Unmarshal(n, bus, log)
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", path, err)
	}
	return s, nil
}

// SaveFile writes the scene as YAML.
func (s *Scene) SaveFile(path string) error {
	n := metadata.New("scene")
	s.MarshalMetadata(n)
	return metadata.SaveFile(path, n)
}

// Encode returns the scene as a YAML document.
func (s *Scene) Encode() ([]byte, error) {
	n := metadata.New("scene")
	s.MarshalMetadata(n)
	return metadata.MarshalYAML(n)
}

// Decode builds a scene from a YAML document written by Encode.
func Decode(data []byte, bus *event.Bus, log *zap.Logger) (*Scene, error) {
	n, err := metadata.UnmarshalYAML(data)
	if err != nil {
		return nil, err
	}
	return Unmarshal(n, bus, log)
}
