package selection

import (
	"reflect"
	"sort"
	"testing"
)

func selected(s *Set, visible []string) []string {
	out := s.Items(visible)
	sort.Strings(out)
	return out
}

func TestShiftRangeToggle(t *testing.T) {
	visible := []string{"a", "b", "c", "d", "e"}
	s := New()
	s.Add("c")

	s.Toggle("b", 1)
	if got := selected(s, visible); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("Expected [b c] after click, got %v", got)
	}

	s.RangeToggle(visible, 4)
	if got := selected(s, visible); !reflect.DeepEqual(got, []string{"b", "d", "e"}) {
		t.Errorf("Expected [b d e] after shift-click, got %v", got)
	}
	if s.Anchor() != 1 {
		t.Errorf("Expected anchor to stay at 1, got %d", s.Anchor())
	}
}

func TestRangeToggleBackwards(t *testing.T) {
	visible := []string{"a", "b", "c", "d", "e"}
	s := New()
	s.Toggle("d", 3)
	s.RangeToggle(visible, 0)
	if got := selected(s, visible); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("Expected [a b c d], got %v", got)
	}
}

func TestRangeToggleWithoutAnchor(t *testing.T) {
	visible := []string{"a", "b", "c"}
	s := New()
	s.RangeToggle(visible, 2)
	if got := selected(s, visible); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("Expected [c], got %v", got)
	}
	if s.Anchor() != 2 {
		t.Errorf("Expected anchor 2, got %d", s.Anchor())
	}
}

func TestRangeUsesCurrentList(t *testing.T) {
	s := New()
	s.Toggle("x", 0)
	// The list was re-filtered; the anchor position now maps to "p".
	filtered := []string{"p", "q", "r"}
	s.RangeToggle(filtered, 2)
	if got := selected(s, filtered); !reflect.DeepEqual(got, []string{"q", "r", "x"}) {
		t.Errorf("Expected [q r x], got %v", got)
	}
}

func TestSelectAllAndClear(t *testing.T) {
	visible := []string{"a", "b"}
	s := New()
	if s.IsAllSelected(nil) {
		t.Error("Expected empty list not to be all selected")
	}
	s.Toggle("a", 0)
	if s.IsAllSelected(visible) {
		t.Error("Expected partial selection")
	}
	s.ToggleAll(visible)
	if !s.IsAllSelected(visible) || s.Len() != 2 {
		t.Errorf("Expected all selected, got %v", s.Items(visible))
	}
	s.ToggleAll(visible)
	if s.Len() != 0 || s.Anchor() != -1 {
		t.Errorf("Expected cleared selection, got %v anchor %d", s.Items(visible), s.Anchor())
	}
}

func TestItemsKeepsHiddenSelections(t *testing.T) {
	s := New()
	s.Add("hidden")
	s.Toggle("b", 1)
	got := s.Items([]string{"a", "b"})
	if !reflect.DeepEqual(got, []string{"b", "hidden"}) {
		t.Errorf("Expected [b hidden], got %v", got)
	}
}
