package engine

import "testing"

func TestCanDiscard(t *testing.T) {
	blue := SuitBlue
	green := SuitGreen

	cases := []struct {
		name        string
		last        string
		played      string
		effective   *Suit
		pendingType PendingDrawType
		want        bool
	}{
		{"same suit", "R-5", "R-9", nil, PendingNone, true},
		{"same name", "R-5", "B-5", nil, PendingNone, true},
		{"no match", "R-5", "B-9", nil, PendingNone, false},
		{"wild always legal", "R-5", "W-ChangeColor", nil, PendingNone, true},
		{"wild draw4 always legal", "R-5", "W-Draw4", nil, PendingNone, true},

		{"effective color overrides pile suit", "R-5", "B-9", &blue, PendingNone, true},
		{"pile suit no longer governs under effective color", "R-5", "R-9", &blue, PendingNone, false},
		{"name match still works under effective color", "R-5", "G-5", &blue, PendingNone, true},
		{"effective color mismatch", "R-5", "Y-7", &green, PendingNone, false},

		{"draw2 pending: draw2 stacks", "R-Draw2", "B-Draw2", nil, PendingDraw2, true},
		{"draw2 pending: suit match rejected", "R-Draw2", "R-9", nil, PendingDraw2, false},
		{"draw2 pending: wild rejected", "R-Draw2", "W-ChangeColor", nil, PendingDraw2, false},
		{"draw2 pending: draw4 rejected", "R-Draw2", "W-Draw4", nil, PendingDraw2, false},

		{"draw4 pending: draw4 stacks", "W-Draw4", "W-Draw4", &blue, PendingDraw4, true},
		{"draw4 pending: draw2 rejected", "W-Draw4", "B-Draw2", &blue, PendingDraw4, false},
		{"draw4 pending: color match rejected", "W-Draw4", "B-9", &blue, PendingDraw4, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			last := mustCard(t, tc.last)
			played := mustCard(t, tc.played)
			got := CanDiscard(last, played, tc.effective, tc.pendingType)
			if got != tc.want {
				t.Errorf("CanDiscard(%s, %s, %v, %s) = %v, want %v",
					last, played, tc.effective, tc.pendingType, got, tc.want)
			}
		})
	}
}

func TestNextTurnWrapsBothDirections(t *testing.T) {
	s := NewState(7)
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		s = Reduce(s, Action{Type: ActionUserEntered, User: User{ID: id, Name: id}})
	}

	for _, dir := range []Direction{Clockwise, Counterclockwise} {
		s.Direction = dir
		cur := "a"
		for i := 0; i < len(ids); i++ {
			cur = s.NextTurn(cur, 1)
		}
		if cur != "a" {
			t.Errorf("direction %s: %d steps should wrap to start, got %s", dir, len(ids), cur)
		}
	}
}

func TestNextTurnSkipsDisconnected(t *testing.T) {
	s := NewState(7)
	for _, id := range []string{"a", "b", "c"} {
		s = Reduce(s, Action{Type: ActionUserEntered, User: User{ID: id, Name: id}})
	}
	s.Disconnected["b"] = true

	if got := s.NextTurn("a", 1); got != "c" {
		t.Errorf("expected disconnected b to be skipped, got %s", got)
	}
	s.Direction = Counterclockwise
	if got := s.NextTurn("c", 1); got != "a" {
		t.Errorf("counterclockwise: expected a, got %s", got)
	}
}
