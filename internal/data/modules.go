package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/acidgo/acid/internal/core/module"
)

// ModuleEntry assigns a built-in module its update stage.
type ModuleEntry struct {
	Name  string `yaml:"name"`
	Stage string `yaml:"stage"`
}

// ModuleTable maps module names to stages.
type ModuleTable struct {
	stages map[string]module.Stage
}

func NewModuleTable() *ModuleTable {
	return &ModuleTable{stages: make(map[string]module.Stage)}
}

// LoadModuleTable loads modules.yaml. A missing file yields an empty table
// so every module keeps its built-in stage.
func LoadModuleTable(path string) (*ModuleTable, error) {
	t := NewModuleTable()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read module table: %w", err)
	}
	var entries []ModuleEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse module table: %w", err)
	}
	for _, e := range entries {
		if err := t.Set(e.Name, e.Stage); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Set assigns name the named stage, replacing any earlier entry.
func (t *ModuleTable) Set(name, stage string) error {
	s, err := module.ParseStage(stage)
	if err != nil {
		return fmt.Errorf("module %q: %w", name, err)
	}
	t.stages[name] = s
	return nil
}

// Stage returns name's stage, or fallback when the table does not list it.
func (t *ModuleTable) Stage(name string, fallback module.Stage) module.Stage {
	if s, ok := t.stages[name]; ok {
		return s
	}
	return fallback
}

func (t *ModuleTable) Count() int {
	return len(t.stages)
}
