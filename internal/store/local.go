package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/driftworks/tacklebox/internal/types"
	_ "modernc.org/sqlite"
)

// slotKey is the single key-value slot holding the whole tackle box as
// one ordered JSON list, catches embedded.
const slotKey = "tackle_box_lures"

// Local is the on-device adapter. The entire collection lives in one
// slot, so every write is a read-modify-write of the full list; mu
// serializes those cycles so interleaved operations never overwrite each
// other's effect.
type Local struct {
	db *sql.DB

	mu     sync.Mutex
	lastID int64
	now    func() time.Time
}

var _ Adapter = (*Local)(nil)

// NewLocal opens (or creates) the device database at dbPath.
func NewLocal(dbPath string) (*Local, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS slots (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create slot table: %w", err)
	}

	return &Local{db: db, now: time.Now}, nil
}

func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the device database.
func (l *Local) Close() error {
	return l.db.Close()
}

// readSlot loads and decodes the slot. A missing slot is an empty box; an
// undecodable slot is ErrCorrupt — never silently coerced to empty, the
// caller decides whether to reset.
func (l *Local) readSlot(ctx context.Context) ([]types.LureRecord, error) {
	var raw string
	err := l.db.QueryRowContext(ctx,
		`SELECT value FROM slots WHERE key = ?`, slotKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []types.LureRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}

	var lures []types.LureRecord
	if err := json.Unmarshal([]byte(raw), &lures); err != nil {
		return nil, fmt.Errorf("decode slot: %v: %w", err, ErrCorrupt)
	}
	return lures, nil
}

func (l *Local) writeSlot(ctx context.Context, lures []types.LureRecord) error {
	raw, err := json.Marshal(lures)
	if err != nil {
		return fmt.Errorf("encode slot: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO slots (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		slotKey, string(raw))
	if err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

// nextID mints a millisecond-timestamp id, bumping past the previous one
// when two writes land inside the same millisecond. Caller holds mu.
func (l *Local) nextID() string {
	ms := l.now().UnixMilli()
	if ms <= l.lastID {
		ms = l.lastID + 1
	}
	l.lastID = ms
	return types.NewLocalID(time.UnixMilli(ms))
}

// List returns the ordered lure collection.
func (l *Local) List(ctx context.Context) ([]types.LureRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readSlot(ctx)
}

// Save prepends a new lure with a fresh local-origin id.
func (l *Local) Save(ctx context.Context, lure types.NewLure) (*types.LureRecord, error) {
	if err := types.ValidateNewLure(lure); err != nil {
		return nil, Invalid(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lures, err := l.readSlot(ctx)
	if err != nil {
		return nil, err
	}

	rec := types.LureRecord{
		ID:         l.nextID(),
		ImageURI:   lure.ImageURI,
		LureType:   lure.LureType,
		Confidence: lure.Confidence,
		Details:    lure.Details,
		Catches:    []types.CatchRecord{},
		Timestamp:  l.now().UTC(),
	}
	lures = append([]types.LureRecord{rec}, lures...)

	if err := l.writeSlot(ctx, lures); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get returns a single lure by id.
func (l *Local) Get(ctx context.Context, id string) (*types.LureRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lures, err := l.readSlot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range lures {
		if lures[i].ID == id {
			rec := lures[i]
			return &rec, nil
		}
	}
	return nil, NotFound("lure", id)
}

// Update applies a lure patch.
func (l *Local) Update(ctx context.Context, id string, patch types.LurePatch) (*types.LureRecord, error) {
	return l.mutateLure(ctx, id, func(rec *types.LureRecord) error {
		if patch.IsFavorite != nil {
			rec.IsFavorite = *patch.IsFavorite
		}
		return nil
	})
}

// ToggleFavorite flips the favorite flag.
func (l *Local) ToggleFavorite(ctx context.Context, id string) (*types.LureRecord, error) {
	return l.mutateLure(ctx, id, func(rec *types.LureRecord) error {
		rec.IsFavorite = !rec.IsFavorite
		return nil
	})
}

// Delete removes a lure; its embedded catches go with it.
func (l *Local) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lures, err := l.readSlot(ctx)
	if err != nil {
		return err
	}
	kept := lures[:0]
	found := false
	for _, rec := range lures {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return NotFound("lure", id)
	}
	return l.writeSlot(ctx, kept)
}

// AddCatch prepends a catch to the lure's list and recomputes the count.
func (l *Local) AddCatch(ctx context.Context, lureID string, c types.NewCatch) (*types.LureRecord, error) {
	if err := types.ValidateNewCatch(c); err != nil {
		return nil, Invalid(err)
	}

	return l.mutateLure(ctx, lureID, func(rec *types.LureRecord) error {
		caught := types.CatchRecord{
			ID:          l.nextID(),
			LureID:      rec.ID,
			ImageURI:    c.ImageURI,
			FishSpecies: c.FishSpecies,
			Weight:      c.Weight,
			Length:      c.Length,
			Location:    c.Location,
			Coordinate:  c.Coordinate,
			Notes:       c.Notes,
			Timestamp:   l.now().UTC(),
		}
		rec.Catches = append([]types.CatchRecord{caught}, rec.Catches...)
		rec.RecomputeCatchCount()
		return nil
	})
}

// UpdateCatch applies a catch patch; a patch without a photo keeps the
// existing one.
func (l *Local) UpdateCatch(ctx context.Context, lureID, catchID string, patch types.CatchPatch) (*types.CatchRecord, error) {
	if err := types.ValidateCatchPatch(patch); err != nil {
		return nil, Invalid(err)
	}

	var updated types.CatchRecord
	_, err := l.mutateLure(ctx, lureID, func(rec *types.LureRecord) error {
		for i := range rec.Catches {
			if rec.Catches[i].ID == catchID {
				patch.Apply(&rec.Catches[i])
				updated = rec.Catches[i]
				return nil
			}
		}
		return NotFound("catch", catchID)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCatch removes a catch and recomputes the count.
func (l *Local) DeleteCatch(ctx context.Context, lureID, catchID string) (*types.LureRecord, error) {
	return l.mutateLure(ctx, lureID, func(rec *types.LureRecord) error {
		kept := rec.Catches[:0]
		found := false
		for _, c := range rec.Catches {
			if c.ID == catchID {
				found = true
				continue
			}
			kept = append(kept, c)
		}
		if !found {
			return NotFound("catch", catchID)
		}
		rec.Catches = kept
		rec.RecomputeCatchCount()
		return nil
	})
}

// CatchesWithLocation collects the catches that carry coordinates, in
// collection order: newest lure first, newest catch first within it.
func (l *Local) CatchesWithLocation(ctx context.Context) ([]types.CatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lures, err := l.readSlot(ctx)
	if err != nil {
		return nil, err
	}
	located := []types.CatchRecord{}
	for _, rec := range lures {
		for _, c := range rec.Catches {
			if c.Coordinate != nil {
				located = append(located, c)
			}
		}
	}
	return located, nil
}

// Clear wipes the slot. This is the explicit user-initiated recovery for
// a corrupt slot, so it bypasses readSlot on purpose.
func (l *Local) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM slots WHERE key = ?`, slotKey); err != nil {
		return fmt.Errorf("clear slot: %w", err)
	}
	return nil
}

// Stats summarizes the collection.
func (l *Local) Stats(ctx context.Context) (*types.TackleBoxStats, error) {
	lures, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := types.TackleBoxStats{LureTypes: map[string]int{}}
	total := 0
	for _, rec := range lures {
		stats.TotalLures++
		if rec.IsFavorite {
			stats.FavoriteLures++
		}
		stats.TotalCatches += rec.CatchCount
		name := rec.LureType
		if name == "" {
			name = "Unknown"
		}
		stats.LureTypes[name]++
		total += rec.Confidence
	}
	if stats.TotalLures > 0 {
		stats.AvgConfidence = (total + stats.TotalLures/2) / stats.TotalLures
	}
	return &stats, nil
}

// mutateLure runs one read-modify-write cycle against a single lure under
// the slot lock.
func (l *Local) mutateLure(ctx context.Context, id string, fn func(*types.LureRecord) error) (*types.LureRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lures, err := l.readSlot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range lures {
		if lures[i].ID != id {
			continue
		}
		if err := fn(&lures[i]); err != nil {
			return nil, err
		}
		if err := l.writeSlot(ctx, lures); err != nil {
			return nil, err
		}
		rec := lures[i]
		return &rec, nil
	}
	return nil, NotFound("lure", id)
}
