package travel

import "testing"

func TestNewRatingAggregateRounds(t *testing.T) {
	avg := 4.3333333
	got := NewRatingAggregate(&avg, 3)
	if got.Average != 4.33 || got.Count != 3 {
		t.Fatalf("unexpected aggregate %+v", got)
	}
}

func TestNewRatingAggregateEmpty(t *testing.T) {
	got := NewRatingAggregate(nil, 0)
	if got.Average != 0 || got.Count != 0 {
		t.Fatalf("expected zero aggregate, got %+v", got)
	}
}

func TestValidRating(t *testing.T) {
	for v, want := range map[int]bool{0: false, 1: true, 3: true, 5: true, 6: false, -1: false} {
		if ValidRating(v) != want {
			t.Fatalf("ValidRating(%d) != %v", v, want)
		}
	}
}
