// Package store persists lure and catch records. It holds the two
// adapters — the on-device slot store and the cloud row store — and the
// router that decides, per call, which of them is authoritative.
package store

import (
	"context"

	"github.com/driftworks/tacklebox/internal/types"
)

// Adapter is the contract both backing stores satisfy. All operations
// return records in the canonical shape regardless of how the backend
// names its fields.
type Adapter interface {
	// List returns the full ordered lure collection, newest first.
	List(ctx context.Context) ([]types.LureRecord, error)
	// Save persists a new lure, assigns a fresh identifier, and prepends
	// it to the collection.
	Save(ctx context.Context, lure types.NewLure) (*types.LureRecord, error)
	// Get returns a single lure by id.
	Get(ctx context.Context, id string) (*types.LureRecord, error)
	// Update applies a lure patch.
	Update(ctx context.Context, id string, patch types.LurePatch) (*types.LureRecord, error)
	// ToggleFavorite flips the favorite flag.
	ToggleFavorite(ctx context.Context, id string) (*types.LureRecord, error)
	// Delete removes a lure and cascades to all of its catches.
	Delete(ctx context.Context, id string) error

	// AddCatch assigns a fresh catch id, prepends the catch to the lure's
	// list, and recomputes the lure's catch count.
	AddCatch(ctx context.Context, lureID string, c types.NewCatch) (*types.LureRecord, error)
	// UpdateCatch applies a catch patch; an absent photo in the patch
	// preserves the existing one.
	UpdateCatch(ctx context.Context, lureID, catchID string, patch types.CatchPatch) (*types.CatchRecord, error)
	// DeleteCatch removes a catch and recomputes the catch count.
	DeleteCatch(ctx context.Context, lureID, catchID string) (*types.LureRecord, error)
	// CatchesWithLocation returns every catch carrying coordinates,
	// across all lures, for map display.
	CatchesWithLocation(ctx context.Context) ([]types.CatchRecord, error)
}
