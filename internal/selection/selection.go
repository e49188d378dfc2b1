// Package selection tracks a multi-select set over a rendered list of image
// identifiers with click-toggle and shift-range semantics.
package selection

// Set is the selection of one grid view. It references identifiers, not
// positions; positions are only used to resolve shift ranges against the list
// visible at the time of the click.
type Set struct {
	selected    map[string]struct{}
	lastClicked int
}

// New returns an empty selection.
func New() *Set {
	return &Set{selected: make(map[string]struct{}), lastClicked: -1}
}

// Toggle flips id and remembers index as the range anchor.
func (s *Set) Toggle(id string, index int) {
	s.flip(id)
	s.lastClicked = index
}

// RangeToggle flips every identifier of visible between the anchor and index,
// excluding the anchor itself, which the previous click already toggled.
// Without an anchor it behaves like Toggle. The anchor does not move.
func (s *Set) RangeToggle(visible []string, index int) {
	if s.lastClicked < 0 || index < 0 || index >= len(visible) {
		if index >= 0 && index < len(visible) {
			s.Toggle(visible[index], index)
		}
		return
	}
	lo, hi := min(s.lastClicked, index), max(s.lastClicked, index)
	hi = min(hi, len(visible)-1)
	for j := lo; j <= hi; j++ {
		if j == s.lastClicked {
			continue
		}
		s.flip(visible[j])
	}
}

// Anchor returns the last clicked index, or -1.
func (s *Set) Anchor() int { return s.lastClicked }

// Contains reports whether id is selected.
func (s *Set) Contains(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// Add selects id.
func (s *Set) Add(id string) { s.selected[id] = struct{}{} }

// SelectAll adds every visible identifier.
func (s *Set) SelectAll(visible []string) {
	for _, id := range visible {
		s.selected[id] = struct{}{}
	}
}

// Clear empties the selection and forgets the range anchor.
func (s *Set) Clear() {
	clear(s.selected)
	s.lastClicked = -1
}

// IsAllSelected reports whether every visible identifier is selected. An
// empty list is never all selected.
func (s *Set) IsAllSelected(visible []string) bool {
	if len(visible) == 0 {
		return false
	}
	for _, id := range visible {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}

// ToggleAll selects every visible identifier, or clears the selection if they
// are already all selected.
func (s *Set) ToggleAll(visible []string) {
	if s.IsAllSelected(visible) {
		s.Clear()
		return
	}
	s.SelectAll(visible)
}

// Len returns the number of selected identifiers.
func (s *Set) Len() int { return len(s.selected) }

// Items returns the selected identifiers in the order they appear in
// visible, followed by any selected identifiers no longer visible.
func (s *Set) Items(visible []string) []string {
	out := make([]string, 0, len(s.selected))
	seen := make(map[string]struct{}, len(s.selected))
	for _, id := range visible {
		if s.Contains(id) {
			if _, dup := seen[id]; !dup {
				out = append(out, id)
				seen[id] = struct{}{}
			}
		}
	}
	for id := range s.selected {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (s *Set) flip(id string) {
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return
	}
	s.selected[id] = struct{}{}
}
