package actor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/gauntlet/internal/game/item"
	"github.com/cory-johannsen/gauntlet/internal/game/polarity"
)

// Template describes a spawnable combatant.
type Template struct {
	ID        string               `yaml:"id"`
	Name      string               `yaml:"name"`
	Stats     Stats                `yaml:"stats"`
	Equipment map[item.Slot]string `yaml:"equipment"`
	Polarity  polarity.Vector      `yaml:"polarity"`
}

// Spawn creates a new actor from the template with a fresh ID, resolving
// equipment in items.
//
// Postcondition: Returns an error if any equipment ID is unknown or misplaced.
func (t *Template) Spawn(items *item.Registry) (*State, error) {
	s := New(uuid.NewString(), t.Name, t.Stats)
	s.PolarityGrants = t.Polarity

	slots := make([]item.Slot, 0, len(t.Equipment))
	for slot := range t.Equipment {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	for _, slot := range slots {
		id := t.Equipment[slot]
		def, ok := items.Get(id)
		if !ok {
			return nil, fmt.Errorf("template %q: unknown item %q", t.ID, id)
		}
		if def.Slot != slot {
			return nil, fmt.Errorf("template %q: item %q belongs in %s, not %s", t.ID, id, def.Slot, slot)
		}
		if _, err := s.Equip(item.NewInstance(def)); err != nil {
			return nil, err
		}
	}
	for _, p := range s.Pools {
		p.Current = p.Max
	}
	return s, nil
}

// LoadTemplates reads every *.yaml file in dir as a Template.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns templates keyed by ID or the first error encountered.
func LoadTemplates(dir string) (map[string]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading actor dir %q: %w", dir, err)
	}
	out := make(map[string]*Template)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var t Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if t.ID == "" {
			return nil, fmt.Errorf("%q: template id must not be empty", path)
		}
		if _, dup := out[t.ID]; dup {
			return nil, fmt.Errorf("%q: duplicate template id %q", path, t.ID)
		}
		out[t.ID] = &t
	}
	return out, nil
}
