package event

import "github.com/acidgo/acid/internal/core/ecs"

// EntityDestroyed is emitted by a scene after an entity and its components
// have been released.
type EntityDestroyed struct {
	Scene  string
	Entity ecs.EntityID
}

// SceneLoaded is emitted when the scenes module switches scene.
type SceneLoaded struct {
	Name     string
	Entities int
}

// CollisionStarted is emitted by the physics module when two colliders'
// bounds begin to overlap. A < B.
type CollisionStarted struct {
	A, B ecs.EntityID
}

// CollisionEnded is emitted when a previously overlapping pair separates.
type CollisionEnded struct {
	A, B ecs.EntityID
}

// SurfaceResized is emitted when the render target extent changes.
type SurfaceResized struct {
	Width, Height uint32
}
