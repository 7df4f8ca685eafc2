package deck

import (
	"errors"
	"testing"
	"time"

	"github.com/abhisek/rehearse/internal/spacedrep"
)

func TestCard_Validate(t *testing.T) {
	tests := []struct {
		name     string
		card     Card
		wantKind string
		wantErr  bool
	}{
		{"defaults kind", Card{ID: "c1", Front: "What is a goroutine?"}, KindFlashcard, false},
		{"normalizes kind", Card{ID: "c2", Front: "Tell me about a conflict", Kind: " Story "}, KindStory, false},
		{"trims id", Card{ID: "  c3 ", Front: "x", Kind: "answer"}, KindAnswer, false},
		{"missing id", Card{Front: "x"}, "", true},
		{"blank front", Card{ID: "c4", Front: "   "}, "", true},
		{"unknown kind", Card{ID: "c5", Front: "x", Kind: "essay"}, "", true},
	}
	for _, tt := range tests {
		c := tt.card
		err := c.Validate()
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidCard) {
				t.Errorf("%s: Validate() error = %v, want ErrInvalidCard", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: Validate() error = %v", tt.name, err)
			continue
		}
		if c.Kind != tt.wantKind {
			t.Errorf("%s: Kind = %q, want %q", tt.name, c.Kind, tt.wantKind)
		}
	}
}

func TestCandidates(t *testing.T) {
	next := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	state := &spacedrep.ScheduleState{EasinessFactor: 2.5, RepetitionCount: 1, IntervalDays: 1, NextReviewAt: &next}
	cards := []Card{
		{ID: "a", ApplicationID: "acme", Kind: KindAnswer, Front: "x", Schedule: state},
		{ID: "b", Front: "y"},
	}
	got := Candidates(cards)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[0].Scope != "acme" || got[0].Kind != KindAnswer || got[0].State != state {
		t.Errorf("Candidates()[0] = %+v", got[0])
	}
	if got[1].State != nil || got[1].Scope != "" {
		t.Errorf("Candidates()[1] = %+v, want unscoped new card", got[1])
	}
	if states := States(cards); states[0] != state || states[1] != nil {
		t.Errorf("States() = %v", states)
	}
}
