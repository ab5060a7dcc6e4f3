package lottery

import (
	"sort"
	"testing"
)

func TestSelectAllWinnersWhenKExceedsCandidates(t *testing.T) {
	winners, losers := Select([]string{"u1", "u2", "u3"}, 5, nil)
	if len(winners) != 3 || len(losers) != 0 {
		t.Fatalf("expected all 3 candidates to win, got winners=%v losers=%v", winners, losers)
	}
}

func TestSelectZeroWinnersLeavesEveryoneALoser(t *testing.T) {
	winners, losers := Select([]string{"u1", "u2"}, 0, nil)
	if len(winners) != 0 || len(losers) != 2 {
		t.Fatalf("expected no winners, got winners=%v losers=%v", winners, losers)
	}
}

func TestSelectIsDisjointAndComplete(t *testing.T) {
	candidates := []string{"u1", "u2", "u3", "u4", "u5"}
	seed := int64(42)
	winners, losers := Select(candidates, 2, &seed)

	if len(winners) != 2 || len(losers) != 3 {
		t.Fatalf("expected 2 winners and 3 losers, got %d/%d", len(winners), len(losers))
	}
	seen := make(map[string]bool)
	for _, w := range append(append([]string(nil), winners...), losers...) {
		if seen[w] {
			t.Fatalf("candidate %s appears more than once across winners/losers", w)
		}
		seen[w] = true
	}
	all := append(append([]string(nil), winners...), losers...)
	sort.Strings(all)
	if sort.StringsAreSorted(all) && len(all) == len(candidates) {
		for i, c := range candidates {
			if all[i] != c {
				t.Fatalf("selection did not account for every candidate: got %v, want %v", all, candidates)
			}
		}
	}
}

func TestSelectIsReproducibleWithSeed(t *testing.T) {
	candidates := []string{"u1", "u2", "u3", "u4", "u5", "u6"}
	seed := int64(7)

	w1, l1 := Select(candidates, 3, &seed)
	w2, l2 := Select(candidates, 3, &seed)

	if !equalStrings(w1, w2) || !equalStrings(l1, l2) {
		t.Fatalf("expected identical selection for the same seed, got %v/%v vs %v/%v", w1, l1, w2, l2)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
