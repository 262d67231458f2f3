package slot

import "sort"

// SeenSet records, per location, the slot keys that were already notified.
//
// It only grows. It is owned by a single goroutine (the watcher loop) and is
// not safe for concurrent use.
type SeenSet struct {
	byLoc map[int]map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{byLoc: map[int]map[string]struct{}{}}
}

// Unseen returns the slots of the batch that are not in the set, ascending by
// start time. Duplicates within the batch are collapsed. The set is not
// modified.
func (s *SeenSet) Unseen(locID int, batch []Slot) []Slot {
	seen := s.byLoc[locID]
	out := make([]Slot, 0, len(batch))
	dup := make(map[string]struct{}, len(batch))
	for _, sl := range batch {
		k := sl.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		if _, ok := dup[k]; ok {
			continue
		}
		dup[k] = struct{}{}
		out = append(out, sl)
	}
	Sort(out)
	return out
}

func (s *SeenSet) Mark(locID int, sl Slot) {
	m := s.byLoc[locID]
	if m == nil {
		m = map[string]struct{}{}
		s.byLoc[locID] = m
	}
	m[sl.Key()] = struct{}{}
}

func (s *SeenSet) Has(locID int, sl Slot) bool {
	_, ok := s.byLoc[locID][sl.Key()]
	return ok
}

func (s *SeenSet) Len(locID int) int { return len(s.byLoc[locID]) }

// Keys returns the known slot keys for a location, sorted.
func (s *SeenSet) Keys(locID int) []string {
	m := s.byLoc[locID]
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
