package scenes

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/acidgo/acid/internal/core/event"
	"github.com/acidgo/acid/internal/math3d"
	"github.com/acidgo/acid/internal/particles"
	"github.com/acidgo/acid/internal/physics"
)

type countingBehaviour struct {
	starts, updates, closes int
	err, startErr           error
}

func (b *countingBehaviour) Start() error {
	b.starts++
	return b.startErr
}

func (b *countingBehaviour) Update(time.Duration) error {
	b.updates++
	return b.err
}

func (b *countingBehaviour) Close() error {
	b.closes++
	return nil
}

func newCapsule(t *testing.T) *physics.Capsule {
	t.Helper()
	c, err := physics.NewCapsule(0.5, 1.8, math3d.Identity())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestColliderLifecycle(t *testing.T) {
	bus := event.NewBus()
	var destroyed []event.EntityDestroyed
	event.Subscribe(bus, func(e event.EntityDestroyed) { destroyed = append(destroyed, e) })

	s := NewScene("test", bus, zap.NewNop())
	player := s.CreateEntity("player")
	first := newCapsule(t)
	if err := s.AddCollider(player, first); err != nil {
		t.Fatal(err)
	}

	second := newCapsule(t)
	if err := s.AddCollider(player, second); err != nil {
		t.Fatal(err)
	}
	if first.CollisionShape() != nil {
		t.Fatal("replaced collider still holds its shape")
	}

	s.Destroy(player)
	if second.CollisionShape() == nil {
		t.Fatal("collider released before the destroy queue was flushed")
	}
	if err := s.Update(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if second.CollisionShape() != nil {
		t.Fatal("destroyed entity's collider not released")
	}
	if s.Alive(player) || s.Len() != 0 {
		t.Fatal("entity survived destruction")
	}

	bus.SwapBuffers()
	bus.DispatchAll()
	if len(destroyed) != 1 || destroyed[0] != (event.EntityDestroyed{Scene: "test", Entity: player}) {
		t.Fatalf("destroyed events = %v", destroyed)
	}
}

func TestAddColliderToDeadEntity(t *testing.T) {
	s := NewScene("test", nil, zap.NewNop())
	id := s.CreateEntity("ghost")
	s.Destroy(id)
	_ = s.Update(0)

	c := newCapsule(t)
	if err := s.AddCollider(id, c); !errors.Is(err, ErrNoEntity) {
		t.Fatalf("err = %v, want ErrNoEntity", err)
	}
	if c.CollisionShape() != nil {
		t.Fatal("rejected collider was not released")
	}
}

func TestBehaviourLifecycle(t *testing.T) {
	s := NewScene("test", nil, zap.NewNop())
	a, b := s.CreateEntity("a"), s.CreateEntity("b")
	boom := errors.New("boom")
	failing := &countingBehaviour{err: boom}
	healthy := &countingBehaviour{}
	if err := s.AddBehaviour(a, failing); err != nil {
		t.Fatal(err)
	}
	if err := s.AddBehaviour(b, healthy); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Update(time.Millisecond); !errors.Is(err, boom) {
			t.Fatalf("frame %d: err = %v, want boom", i, err)
		}
	}
	if healthy.starts != 1 || healthy.updates != 3 {
		t.Fatalf("healthy started %d updated %d", healthy.starts, healthy.updates)
	}

	extra := &countingBehaviour{}
	_ = s.AddBehaviour(b, extra)
	s.Destroy(b)
	_ = s.Update(time.Millisecond)
	if healthy.closes != 1 || extra.closes != 1 {
		t.Fatalf("closes = %d, %d; want 1, 1", healthy.closes, extra.closes)
	}
	if extra.starts != 1 {
		t.Fatal("behaviour added before destroy did not start")
	}
}

func TestBehaviourFailingStartIsNeverUpdated(t *testing.T) {
	s := NewScene("test", nil, zap.NewNop())
	a := s.CreateEntity("a")
	boom := errors.New("boom")
	broken := &countingBehaviour{startErr: boom}
	_ = s.AddBehaviour(a, broken)

	if err := s.Update(time.Millisecond); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Update(time.Millisecond); err != nil {
			t.Fatalf("frame %d: err = %v", i, err)
		}
	}
	if broken.starts != 1 || broken.updates != 0 {
		t.Fatalf("started %d updated %d, want 1, 0", broken.starts, broken.updates)
	}

	s.Destroy(a)
	_ = s.Update(time.Millisecond)
	if broken.closes != 1 {
		t.Fatalf("closes = %d, want 1", broken.closes)
	}
}

func TestSceneFileRoundTrip(t *testing.T) {
	s := NewScene("level", nil, zap.NewNop())
	player := s.CreateEntity("player")
	tr, _ := s.Transform(player)
	tr.Position = mgl32.Vec3{1, 2, 3}
	if err := s.AddCollider(player, newCapsule(t)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRigidBody(player, &physics.RigidBody{Mass: 80, Velocity: mgl32.Vec3{0, 1, 0}}); err != nil {
		t.Fatal(err)
	}
	torch := s.CreateEntity("torch")
	err := s.AddEmitter(torch, &particles.Emitter{
		Types: []*particles.ParticleType{{Name: "flame", LifeLength: 0.5, Scale: 0.2}},
		Spawn: &particles.SpawnSphere{Radius: 0.1},
		PPS:   40,
	})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "level.yaml")
	if err := s.SaveFile(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if got.Name() != "level" || got.Len() != 2 {
		t.Fatalf("loaded %q with %d entities", got.Name(), got.Len())
	}
	id, ok := got.Find("player")
	if !ok {
		t.Fatal("player missing")
	}
	if tr, _ := got.Transform(id); tr.Position != (mgl32.Vec3{1, 2, 3}) {
		t.Fatalf("position = %v", tr.Position)
	}
	c, ok := got.Collider(id)
	if !ok {
		t.Fatal("collider missing")
	}
	capsule, ok := c.(*physics.Capsule)
	if !ok || capsule.Radius() != 0.5 || capsule.Height() != 1.8 {
		t.Fatalf("collider = %#v", c)
	}
	if rb, ok := got.RigidBody(id); !ok || rb.Mass != 80 || rb.Velocity != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("rigid body = %+v", rb)
	}
	torchID, _ := got.Find("torch")
	e, ok := got.Emitter(torchID)
	if !ok || e.PPS != 40 || len(e.Types) != 1 || e.Types[0].Name != "flame" {
		t.Fatalf("emitter = %+v", e)
	}
	if sp, ok := e.Spawn.(*particles.SpawnSphere); !ok || sp.Radius != 0.1 {
		t.Fatalf("spawn = %#v", e.Spawn)
	}
}

func TestScenesModuleSwitch(t *testing.T) {
	bus := event.NewBus()
	var loaded []string
	event.Subscribe(bus, func(e event.SceneLoaded) { loaded = append(loaded, e.Name) })

	m := NewScenes(bus, zap.NewNop())
	if m.Space() != nil || m.Source() != nil {
		t.Fatal("empty module must expose nil interfaces")
	}
	if err := m.Update(time.Millisecond); err != nil {
		t.Fatal(err)
	}

	first := NewScene("first", bus, zap.NewNop())
	c := newCapsule(t)
	_ = first.AddCollider(first.CreateEntity("x"), c)
	if err := m.SetScene(first); err != nil {
		t.Fatal(err)
	}
	if err := m.SetScene(NewScene("second", bus, zap.NewNop())); err != nil {
		t.Fatal(err)
	}
	if c.CollisionShape() != nil {
		t.Fatal("old scene's colliders not released on switch")
	}
	if m.Current().Name() != "second" || m.Space() == nil {
		t.Fatal("second scene not active")
	}

	bus.SwapBuffers()
	bus.DispatchAll()
	if len(loaded) != 2 || loaded[0] != "first" || loaded[1] != "second" {
		t.Fatalf("loaded = %v", loaded)
	}
	if err := m.Close(); err != nil || m.Current() != nil {
		t.Fatal("Close left a scene active")
	}
}

func TestEncodeDecode(t *testing.T) {
	s := NewScene("arena", nil, zap.NewNop())
	id := s.CreateEntity("ball")
	sphere, err := physics.NewSphere(0.5, math3d.Identity())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddCollider(id, sphere); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(doc, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer got.Close()
	if got.Name() != "arena" || got.Len() != 1 {
		t.Fatalf("decoded %q with %d entities", got.Name(), got.Len())
	}
	ball, ok := got.Find("ball")
	if !ok {
		t.Fatal("ball missing")
	}
	c, ok := got.Collider(ball)
	if !ok || physics.KindOf(c) != physics.KindSphere {
		t.Fatalf("collider = %v", c)
	}

	if _, err := Decode([]byte("entities: ["), nil, zap.NewNop()); err == nil {
		t.Fatal("expected error for malformed document")
	}
}
