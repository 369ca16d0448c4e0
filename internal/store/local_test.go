package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/driftworks/tacklebox/internal/types"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLocal_SaveAndList(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	first, err := l.Save(ctx, types.NewLure{ImageURI: "file:///a.jpg", LureType: "Spoon", Confidence: 70})
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Save(ctx, types.NewLure{ImageURI: "file:///b.jpg", LureType: "Jig", Confidence: 90})
	if err != nil {
		t.Fatal(err)
	}

	lures, err := l.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lures) != 2 {
		t.Fatalf("List = %d lures, want 2", len(lures))
	}
	// Newest first.
	if lures[0].ID != second.ID || lures[1].ID != first.ID {
		t.Errorf("order = [%s %s], want [%s %s]", lures[0].ID, lures[1].ID, second.ID, first.ID)
	}
	if types.ClassifyID(first.ID) != types.OriginLocal {
		t.Errorf("Save minted non-local id %q", first.ID)
	}
}

func TestLocal_SaveRejectsMissingPhoto(t *testing.T) {
	l := newTestLocal(t)

	_, err := l.Save(context.Background(), types.NewLure{LureType: "Crankbait", Confidence: 50})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Save without photo = %v, want ErrValidation", err)
	}
}

func TestLocal_SameMillisecondIDsAreUnique(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	// Freeze the clock so every mint lands in one millisecond.
	fixed := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		rec, err := l.Save(ctx, types.NewLure{ImageURI: "file:///x.jpg"})
		if err != nil {
			t.Fatal(err)
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate id %q", rec.ID)
		}
		seen[rec.ID] = true
		if types.ClassifyID(rec.ID) != types.OriginLocal {
			t.Errorf("id %q classified as cloud-origin", rec.ID)
		}
	}
	if !seen[types.NewLocalID(fixed)] {
		t.Errorf("first id should be the frozen clock's timestamp %q", types.NewLocalID(fixed))
	}
}

func TestLocal_GetNotFound(t *testing.T) {
	l := newTestLocal(t)

	_, err := l.Get(context.Background(), "1700000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestLocal_ToggleFavorite(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	rec, err := l.Save(ctx, types.NewLure{ImageURI: "file:///a.jpg"})
	if err != nil {
		t.Fatal(err)
	}

	on, err := l.ToggleFavorite(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !on.IsFavorite {
		t.Error("first toggle did not set favorite")
	}

	off, err := l.ToggleFavorite(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if off.IsFavorite {
		t.Error("second toggle did not clear favorite")
	}
}

func TestLocal_CatchLifecycle(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	rec, err := l.Save(ctx, types.NewLure{ImageURI: "file:///lure.jpg", LureType: "Swimbait"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.CatchCount != 0 {
		t.Fatalf("new lure CatchCount = %d, want 0", rec.CatchCount)
	}

	w := types.Weight{Value: 3.5, Unit: types.WeightPounds}
	rec, err = l.AddCatch(ctx, rec.ID, types.NewCatch{
		ImageURI:    "file:///catch1.jpg",
		FishSpecies: "Walleye",
		Weight:      &w,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.CatchCount != 1 || len(rec.Catches) != 1 {
		t.Fatalf("after add: count=%d catches=%d, want 1/1", rec.CatchCount, len(rec.Catches))
	}

	rec, err = l.AddCatch(ctx, rec.ID, types.NewCatch{ImageURI: "file:///catch2.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.CatchCount != 2 {
		t.Fatalf("after second add: count=%d, want 2", rec.CatchCount)
	}
	// Newest catch first.
	if rec.Catches[0].ImageURI != "file:///catch2.jpg" {
		t.Errorf("catch order wrong: first is %q", rec.Catches[0].ImageURI)
	}

	// Species edit keeps the photo.
	species := "Sauger"
	updated, err := l.UpdateCatch(ctx, rec.ID, rec.Catches[1].ID, types.CatchPatch{FishSpecies: &species})
	if err != nil {
		t.Fatal(err)
	}
	if updated.FishSpecies != "Sauger" {
		t.Errorf("FishSpecies = %q, want Sauger", updated.FishSpecies)
	}
	if updated.ImageURI != "file:///catch1.jpg" {
		t.Errorf("photo lost on patch: %q", updated.ImageURI)
	}
	if updated.Weight == nil || updated.Weight.Value != 3.5 {
		t.Error("weight lost on patch")
	}

	rec, err = l.DeleteCatch(ctx, rec.ID, updated.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.CatchCount != 1 || len(rec.Catches) != 1 {
		t.Fatalf("after delete: count=%d catches=%d, want 1/1", rec.CatchCount, len(rec.Catches))
	}

	_, err = l.DeleteCatch(ctx, rec.ID, "1690000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing catch = %v, want ErrNotFound", err)
	}
}

func TestLocal_CatchesWithLocation(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	rec, err := l.Save(ctx, types.NewLure{ImageURI: "file:///lure.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddCatch(ctx, rec.ID, types.NewCatch{
		ImageURI:    "file:///nowhere.jpg",
		FishSpecies: "Perch",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddCatch(ctx, rec.ID, types.NewCatch{
		ImageURI:    "file:///lake.jpg",
		FishSpecies: "Walleye",
		Coordinate:  &types.GeoPoint{Latitude: 46.78, Longitude: -92.1},
	}); err != nil {
		t.Fatal(err)
	}

	located, err := l.CatchesWithLocation(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(located) != 1 {
		t.Fatalf("located = %+v, want only the coordinated catch", located)
	}
	if located[0].FishSpecies != "Walleye" || located[0].LureID != rec.ID {
		t.Errorf("located[0] = %+v", located[0])
	}
	if located[0].Coordinate.Latitude != 46.78 {
		t.Errorf("Coordinate = %+v", located[0].Coordinate)
	}
}

func TestLocal_DeleteRemovesCatches(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	rec, err := l.Save(ctx, types.NewLure{ImageURI: "file:///a.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddCatch(ctx, rec.ID, types.NewCatch{ImageURI: "file:///c.jpg"}); err != nil {
		t.Fatal(err)
	}

	if err := l.Delete(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}

	if err := l.Delete(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestLocal_CorruptSlot(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	if _, err := l.db.Exec(
		`INSERT INTO slots (key, value) VALUES (?, ?)`, slotKey, "{not json"); err != nil {
		t.Fatal(err)
	}

	_, err := l.List(ctx)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("List on corrupt slot = %v, want ErrCorrupt", err)
	}

	// Writes refuse to clobber a corrupt slot.
	_, err = l.Save(ctx, types.NewLure{ImageURI: "file:///a.jpg"})
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Save on corrupt slot = %v, want ErrCorrupt", err)
	}

	// Clear is the recovery path.
	if err := l.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	lures, err := l.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lures) != 0 {
		t.Errorf("List after clear = %d lures, want 0", len(lures))
	}
}

func TestLocal_ConcurrentWrites(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Save(ctx, types.NewLure{ImageURI: "file:///z.jpg"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	lures, err := l.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lures) != n {
		t.Errorf("List = %d lures, want %d (lost update)", len(lures), n)
	}
	seen := map[string]bool{}
	for _, rec := range lures {
		if seen[rec.ID] {
			t.Fatalf("duplicate id %q", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestLocal_Stats(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	a, _ := l.Save(ctx, types.NewLure{ImageURI: "file:///a.jpg", LureType: "Spoon", Confidence: 80})
	if _, err := l.Save(ctx, types.NewLure{ImageURI: "file:///b.jpg", LureType: "Spoon", Confidence: 60}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ToggleFavorite(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AddCatch(ctx, a.ID, types.NewCatch{ImageURI: "file:///c.jpg"}); err != nil {
		t.Fatal(err)
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalLures != 2 || stats.FavoriteLures != 1 || stats.TotalCatches != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.LureTypes["Spoon"] != 2 {
		t.Errorf("LureTypes[Spoon] = %d, want 2", stats.LureTypes["Spoon"])
	}
	if stats.AvgConfidence != 70 {
		t.Errorf("AvgConfidence = %d, want 70", stats.AvgConfidence)
	}
}
