package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/driftworks/tacklebox/internal/types"
)

// AuthState reports the current sign-in state. The router consults it on
// every call — never a cached copy — so routing survives a sign-out that
// happens mid-session.
type AuthState interface {
	// UserID returns the identity id and whether a user is signed in.
	UserID(ctx context.Context) (string, bool)
}

// Router decides, per call, whether the local slot or the cloud rows are
// authoritative, and keeps a captured identification from being lost when
// the network is down.
//
// Routing rules: signed out, everything is local. Signed in, operations
// on an existing record follow the identifier's origin; creation targets
// the cloud, falling back to a local write on a transient failure.
// ErrAuth never falls back — the user's intent was to persist to cloud.
type Router struct {
	local Adapter
	cloud Adapter
	auth  AuthState
}

// NewRouter wires the two adapters behind the routing policy.
func NewRouter(local, cloud Adapter, auth AuthState) *Router {
	return &Router{local: local, cloud: cloud, auth: auth}
}

// List reads the collection from whichever store is authoritative. When
// signed in it reads cloud, switching to local on a transient failure.
// The two sets are never merged into one response: mixing them would put
// ambiguous identifiers in front of the caller.
func (r *Router) List(ctx context.Context) ([]types.LureRecord, error) {
	if _, ok := r.auth.UserID(ctx); !ok {
		return r.local.List(ctx)
	}

	lures, err := r.cloud.List(ctx)
	if errors.Is(err, ErrTransient) {
		slog.Warn("cloud list unavailable, reading local", "error", err)
		return r.local.List(ctx)
	}
	return lures, err
}

// CatchesWithLocation reads the map collection with the same store
// switch as List: cloud when signed in, local on a transient failure,
// never both merged into one response.
func (r *Router) CatchesWithLocation(ctx context.Context) ([]types.CatchRecord, error) {
	if _, ok := r.auth.UserID(ctx); !ok {
		return r.local.CatchesWithLocation(ctx)
	}

	catches, err := r.cloud.CatchesWithLocation(ctx)
	if errors.Is(err, ErrTransient) {
		slog.Warn("cloud catch locations unavailable, reading local", "error", err)
		return r.local.CatchesWithLocation(ctx)
	}
	return catches, err
}

// Save persists a freshly identified lure. Signed in it targets the
// cloud; a transient failure downgrades to a local write so the captured
// identification is never lost. Exactly one store ends up with the
// record.
func (r *Router) Save(ctx context.Context, lure types.NewLure) (*types.LureRecord, error) {
	if _, ok := r.auth.UserID(ctx); !ok {
		return r.local.Save(ctx, lure)
	}

	rec, err := r.cloud.Save(ctx, lure)
	if errors.Is(err, ErrTransient) {
		slog.Warn("cloud save failed, writing local", "error", err)
		return r.local.Save(ctx, lure)
	}
	return rec, err
}

// Get returns a single lure from the store its identifier names.
func (r *Router) Get(ctx context.Context, id string) (*types.LureRecord, error) {
	return r.pick(id).Get(ctx, id)
}

// Update patches an existing lure in its owning store.
func (r *Router) Update(ctx context.Context, id string, patch types.LurePatch) (*types.LureRecord, error) {
	return r.pick(id).Update(ctx, id, patch)
}

// ToggleFavorite flips the favorite flag in the owning store.
func (r *Router) ToggleFavorite(ctx context.Context, id string) (*types.LureRecord, error) {
	return r.pick(id).ToggleFavorite(ctx, id)
}

// Delete removes a lure (and, via cascade, its catches) from the store
// its identifier names, regardless of the current sign-in state — local
// history created before sign-in stays deletable afterwards.
func (r *Router) Delete(ctx context.Context, id string) error {
	return r.pick(id).Delete(ctx, id)
}

// AddCatch logs a catch against the lure's owning store. When the owner
// is a cloud row and the write fails transiently, the router completes
// the action locally only if the same lure id already exists in the slot;
// otherwise the failure propagates — inventing a local copy of an unknown
// cloud lure would leave the two stores telling different stories.
func (r *Router) AddCatch(ctx context.Context, lureID string, c types.NewCatch) (*types.LureRecord, error) {
	target := r.pick(lureID)
	rec, err := target.AddCatch(ctx, lureID, c)
	if target == r.cloud && errors.Is(err, ErrTransient) {
		if _, localErr := r.local.Get(ctx, lureID); localErr == nil {
			slog.Warn("cloud add-catch failed, writing local", "lure", lureID, "error", err)
			return r.local.AddCatch(ctx, lureID, c)
		}
	}
	return rec, err
}

// UpdateCatch edits a catch in the lure's owning store.
func (r *Router) UpdateCatch(ctx context.Context, lureID, catchID string, patch types.CatchPatch) (*types.CatchRecord, error) {
	return r.pick(lureID).UpdateCatch(ctx, lureID, catchID, patch)
}

// DeleteCatch removes a catch from the lure's owning store.
func (r *Router) DeleteCatch(ctx context.Context, lureID, catchID string) (*types.LureRecord, error) {
	return r.pick(lureID).DeleteCatch(ctx, lureID, catchID)
}

// pick resolves the adapter for an existing record. Local-origin ids are
// always served locally. Cloud-origin ids go to the cloud adapter even
// when signed out: the adapter then fails with ErrAuth, which is the
// honest answer — the record lives in an account we no longer have a
// session for, so it must not be silently retargeted at the slot.
func (r *Router) pick(id string) Adapter {
	if types.ClassifyID(id) == types.OriginLocal {
		return r.local
	}
	return r.cloud
}
