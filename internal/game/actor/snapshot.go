package actor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/gauntlet/internal/game/item"
	"github.com/cory-johannsen/gauntlet/internal/game/polarity"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
)

// EquipmentRef identifies an equipped item instance by template and instance ID.
type EquipmentRef struct {
	ItemID     string `json:"itemId"`
	InstanceID string `json:"instanceId"`
}

// Snapshot is the flat persisted form of a State. It carries no derived data.
type Snapshot struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	Base           Stats                      `json:"base"`
	Turn           int                        `json:"turn"`
	AP             int                        `json:"ap"`
	HP             int                        `json:"hp"`
	Pools          map[item.Pool]int          `json:"pools"`
	Statuses       []status.Instance          `json:"statuses"`
	Attunement     map[string]int             `json:"attunement,omitempty"`
	Cooldowns      map[string]int             `json:"cooldowns,omitempty"`
	PolarityGrants polarity.Vector            `json:"polarityGrants"`
	Equipment      map[item.Slot]EquipmentRef `json:"equipment,omitempty"`
	KillReward     KillReward                 `json:"killReward"`
}

// Snapshot captures the persistent state of s.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		ID:             s.ID,
		Name:           s.Name,
		Base:           s.Base,
		Turn:           s.Turn,
		AP:             s.AP,
		HP:             s.HP(),
		Pools:          make(map[item.Pool]int, len(s.Pools)),
		Statuses:       s.Statuses.Instances(),
		Attunement:     copyIntMap(s.Attunement),
		Cooldowns:      copyIntMap(s.Cooldowns),
		PolarityGrants: s.PolarityGrants,
		Equipment:      make(map[item.Slot]EquipmentRef, len(s.Equipment)),
		KillReward:     s.KillReward,
	}
	for p, v := range s.Pools {
		snap.Pools[p] = v.Current
	}
	for slot, inst := range s.Equipment {
		snap.Equipment[slot] = EquipmentRef{ItemID: inst.Def.ID, InstanceID: inst.ID}
	}
	return snap
}

// Marshal encodes the snapshot as JSON.
func (snap Snapshot) Marshal() ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshalling snapshot %q: %w", snap.ID, err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a JSON snapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshalling snapshot: %w", err)
	}
	return snap, nil
}

// Restore rebuilds a State from snap. Equipment templates are resolved in
// items; status instances are bound to statuses, dropping unknown IDs. The
// modifier cache and status aggregate are recomputed, never read from snap.
//
// Precondition: items and statuses must be non-nil.
// Postcondition: Returns an error naming every equipment ref missing from items.
func Restore(snap Snapshot, items *item.Registry, statuses *status.Registry) (*State, error) {
	s := &State{
		ID:             snap.ID,
		Name:           snap.Name,
		Base:           snap.Base,
		Turn:           snap.Turn,
		AP:             snap.AP,
		Equipment:      make(map[item.Slot]*item.Instance, len(snap.Equipment)),
		Pools:          make(map[item.Pool]*Pool, 3),
		Statuses:       status.RestoreSet(statuses, snap.Statuses),
		Cooldowns:      copyIntMap(snap.Cooldowns),
		Attunement:     copyIntMap(snap.Attunement),
		PolarityGrants: snap.PolarityGrants,
		KillReward:     snap.KillReward,
	}

	slots := make([]item.Slot, 0, len(snap.Equipment))
	for slot := range snap.Equipment {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	var errs []error
	for _, slot := range slots {
		ref := snap.Equipment[slot]
		def, ok := items.Get(ref.ItemID)
		if !ok {
			errs = append(errs, fmt.Errorf("slot %s: unknown item %q", slot, ref.ItemID))
			continue
		}
		s.Equipment[slot] = &item.Instance{ID: ref.InstanceID, Def: def}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("restoring actor %q: %w", snap.ID, errors.Join(errs...))
	}

	for _, p := range item.Pools() {
		s.Pools[p] = &Pool{Current: snap.Pools[p]}
	}
	s.Pools[item.PoolHP].Current = snap.HP
	s.RebuildModifiers()
	return s, nil
}
