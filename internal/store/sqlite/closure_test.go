package sqlite

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/hierarchy"
	"github.com/listenupapp/diary-server/internal/store"
)

func TestClosure_EnableAndDrop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	exists, err := s.ClosureExists(ctx)
	if err != nil {
		t.Fatalf("ClosureExists: %v", err)
	}
	if exists {
		t.Fatal("closure should not exist on a fresh store")
	}

	a := mustCreateTag(t, s, "A", nil)
	b := mustCreateTag(t, s, "B", a)
	mustCreateTag(t, s, "C", b)

	rows, err := s.EnableClosure(ctx)
	if err != nil {
		t.Fatalf("EnableClosure: %v", err)
	}
	// A:(A) B:(B,A) C:(C,B,A)
	if rows != 6 {
		t.Errorf("rows: got %d, want 6", rows)
	}

	if n, err := s.CountClosureRows(ctx); err != nil || n != 6 {
		t.Errorf("CountClosureRows: got %d, %v", n, err)
	}

	if err := s.DropClosure(ctx); err != nil {
		t.Fatalf("DropClosure: %v", err)
	}
	exists, _ = s.ClosureExists(ctx)
	if exists {
		t.Error("closure still exists after drop")
	}

	if _, err := s.RebuildClosure(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("rebuild without table: expected ErrNotFound, got %v", err)
	}
}

func TestClosure_Reflexive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateTag(t, s, "A", nil)
	b := mustCreateTag(t, s, "B", a)
	c := mustCreateTag(t, s, "C", b)

	if _, err := s.EnableClosure(ctx); err != nil {
		t.Fatalf("EnableClosure: %v", err)
	}

	for _, tag := range []*domain.Tag{a, b, c} {
		var n int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM tag_closure WHERE descendant_id = ? AND ancestor_id = ?`,
			tag.ID, tag.ID).Scan(&n)
		if err != nil || n != 1 {
			t.Errorf("missing (%d, %d): %d, %v", tag.ID, tag.ID, n, err)
		}
	}

	got, err := s.ClosureDescendantsOf(ctx, a.ID)
	if err != nil {
		t.Fatalf("ClosureDescendantsOf: %v", err)
	}
	if !slices.Equal(got, []int64{a.ID, b.ID, c.ID}) {
		t.Errorf("descendants of A: got %v", got)
	}

	got, _ = s.ClosureDescendantsMatching(ctx, domain.FoldKey("b"))
	if !slices.Equal(got, []int64{b.ID, c.ID}) {
		t.Errorf("matching b: got %v", got)
	}
}

func TestClosure_CycleBrokenLikeResolver(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateTag(t, s, "a", nil)
	b := mustCreateTag(t, s, "b", a)
	c := mustCreateTag(t, s, "c", b)

	// Close the loop behind the service's back: a -> c -> b -> a.
	if _, err := s.db.Exec(`UPDATE tags SET parent_id = ? WHERE id = ?`, c.ID, a.ID); err != nil {
		t.Fatalf("induce cycle: %v", err)
	}

	rows, err := s.EnableClosure(ctx)
	if err != nil {
		t.Fatalf("EnableClosure on a cycle: %v", err)
	}
	if rows != 3 {
		t.Errorf("every cycle member is a root: got %d rows, want 3", rows)
	}
}

// TestClosure_MatchesLiveExpansion compares closure lookups with the
// resolver over random graphs, cycles included.
func TestClosure_MatchesLiveExpansion(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	names := []string{"alpha", "beta", "gamma", "alphabet", "delta", "Beta Max", "omega", "Alps"}

	for round := range 10 {
		s := newTestStore(t)
		ctx := context.Background()

		var tags []*domain.Tag
		for i, name := range names {
			var parent *domain.Tag
			if i > 0 && rng.IntN(3) != 0 {
				parent = tags[rng.IntN(i)]
			}
			tags = append(tags, mustCreateTag(t, s, fmt.Sprintf("%s %d", name, round), parent))
		}
		if round%2 == 1 {
			// Add a cycle on odd rounds.
			first, last := tags[0], tags[len(tags)-1]
			if _, err := s.db.Exec(`UPDATE tags SET parent_id = ? WHERE id = ?`, last.ID, first.ID); err != nil {
				t.Fatalf("induce cycle: %v", err)
			}
		}

		if _, err := s.EnableClosure(ctx); err != nil {
			t.Fatalf("EnableClosure: %v", err)
		}

		all, err := s.ListTags(ctx)
		if err != nil {
			t.Fatalf("ListTags: %v", err)
		}
		r := hierarchy.New(all)

		for _, kw := range []string{"al", "beta", "a", "zzz", "max", "0"} {
			key := domain.FoldKey(kw)
			got, err := s.ClosureDescendantsMatching(ctx, key)
			if err != nil {
				t.Fatalf("ClosureDescendantsMatching: %v", err)
			}
			want := r.MatchingDescendants(key)
			if !slices.Equal(got, want) {
				t.Errorf("round %d keyword %q: closure %v, live %v", round, kw, got, want)
			}
		}

		for _, tag := range all {
			got, _ := s.ClosureDescendantsOf(ctx, tag.ID)
			if want := r.DescendantIDs(tag.ID); !slices.Equal(got, want) {
				t.Errorf("round %d tag %d: closure %v, live %v", round, tag.ID, got, want)
			}
		}
	}
}
