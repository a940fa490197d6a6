package module

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"
)

// Stage decides whether and in which phase of a frame a module updates.
type Stage uint8

const (
	StageNever  Stage = iota // registered but never updated
	StageAlways              // every loop iteration, before the simulation phases
	StagePre                 // input, physics integration
	StageNormal              // scenes, game logic
	StagePost                // late logic, scripts
	StageRender              // GPU recording and submission
)

var stageNames = [...]string{"never", "always", "pre", "normal", "post", "render"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// ParseStage resolves a stage name case-insensitively ("Render", "render", "RENDER").
func ParseStage(name string) (Stage, error) {
	key := cases.Fold().String(strings.TrimSpace(name))
	for i, n := range stageNames {
		if n == key {
			return Stage(i), nil
		}
	}
	return StageNever, fmt.Errorf("unknown module stage %q", name)
}

// StageSet is a bitmask of stages driven by one RunFrame call.
type StageSet uint8

// Stages builds a set from individual stages.
func Stages(stages ...Stage) StageSet {
	var set StageSet
	for _, s := range stages {
		set |= 1 << s
	}
	return set
}

// Has reports whether s is part of the set. StageNever is never part of any set.
func (set StageSet) Has(s Stage) bool {
	return s != StageNever && set&(1<<s) != 0
}

var (
	SimulationStages = Stages(StageAlways, StagePre, StageNormal, StagePost)
	UpdateStages     = Stages(StagePre, StageNormal, StagePost)
	AlwaysStages     = Stages(StageAlways)
	RenderStages     = Stages(StageRender)
)

// StageKey orders registry entries: stage ordinal first, registration sequence second.
type StageKey struct {
	Stage Stage
	Seq   uint64
}

// Less reports whether k sorts before o.
func (k StageKey) Less(o StageKey) bool {
	if k.Stage != o.Stage {
		return k.Stage < o.Stage
	}
	return k.Seq < o.Seq
}

func (k StageKey) String() string {
	return fmt.Sprintf("%s#%d", k.Stage, k.Seq)
}

// seq is shared by every Registry in the process so keys never repeat.
var seq atomic.Uint64

func nextSeq() uint64 { return seq.Add(1) }

// Module is the interface every engine subsystem implements.
type Module interface {
	Update(dt time.Duration) error
}

// Closer is implemented by modules holding resources that must be released
// when they leave the registry.
type Closer interface {
	Close() error
}
