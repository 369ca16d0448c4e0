// Package quota resolves the subscription entitlement for the signed-in
// identity and enforces the free tier's monthly identification limit.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/driftworks/tacklebox/internal/types"
)

// FreeTierLimit is the number of identifications a free identity may
// request per billing period.
const FreeTierLimit = 10

// ErrQuotaExceeded marks a denied identification request. Carried by
// *ExceededError so the caller can render the upsell without a second
// round trip. A denial is terminal for that request — never retried.
var ErrQuotaExceeded = errors.New("monthly scan quota exceeded")

// ExceededError is the denial payload.
type ExceededError struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
	Limit     int `json:"limit"`
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("scan quota exceeded: %d/%d used", e.Used, e.Limit)
}

// Is lets errors.Is(err, ErrQuotaExceeded) match the payload form.
func (e *ExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// BillingProvider reports the identity's entitlement. Entitlement reads
// a cached value; Refresh forces a round trip to the billing backend.
type BillingProvider interface {
	Entitlement(ctx context.Context) (*types.Entitlement, error)
	Refresh(ctx context.Context) (*types.Entitlement, error)
}

// UsageSource reads and advances the server-side monthly counter.
type UsageSource interface {
	UsageCount(ctx context.Context) (int, error)
	IncrementUsage(ctx context.Context) (int, error)
}

// EntitlementSyncer mirrors the entitlement onto the cloud identity.
type EntitlementSyncer interface {
	SyncEntitlement(ctx context.Context, ent types.Entitlement) error
}

// Tracker produces QuotaStatus snapshots and the allow/deny decision in
// front of every identification request.
type Tracker struct {
	billing   BillingProvider
	usage     UsageSource
	syncer    EntitlementSyncer
	overrides *Overrides
	limit     int
	now       func() time.Time
}

// NewTracker wires the tracker. syncer and overrides may be nil.
func NewTracker(billing BillingProvider, usage UsageSource, syncer EntitlementSyncer, overrides *Overrides) *Tracker {
	return &Tracker{
		billing:   billing,
		usage:     usage,
		syncer:    syncer,
		overrides: overrides,
		limit:     FreeTierLimit,
		now:       time.Now,
	}
}

// Allow decides whether one identification may be dispatched. Pro and
// unlimited tiers always pass. Free tiers pass while used < limit and
// are denied with the quota payload once exhausted. When the usage
// counter cannot be read the tracker fails open: denial is reserved for
// a positively exhausted quota.
func (t *Tracker) Allow(ctx context.Context) error {
	if t.overrides.Enabled(OverrideQuotaExceeded) {
		return &ExceededError{Used: t.limit, Remaining: 0, Limit: t.limit}
	}

	if ent := t.entitlement(ctx); ent.Entitled() {
		return nil
	}

	used, err := t.usageCount(ctx)
	if err != nil {
		slog.Warn("usage lookup failed, allowing scan", "error", err)
		return nil
	}
	if used < t.limit {
		return nil
	}
	return &ExceededError{Used: used, Remaining: 0, Limit: t.limit}
}

// Recorded notes one successful identification against the counter.
func (t *Tracker) Recorded(ctx context.Context) (int, error) {
	return t.usage.IncrementUsage(ctx)
}

// Status derives the quota snapshot for display. It is computed from its
// inputs on every call and never stored. The exhausted-quota override is
// consulted here as well as in Allow so the snapshot and the check never
// disagree.
func (t *Tracker) Status(ctx context.Context) types.QuotaStatus {
	if t.overrides.Enabled(OverrideQuotaExceeded) {
		return t.freeStatus(t.limit)
	}

	if ent := t.entitlement(ctx); ent.Entitled() {
		return types.QuotaStatus{
			IsPro:     true,
			Unlimited: true,
			Limit:     t.limit,
			Message:   "Unlimited scans",
		}
	}

	used, err := t.usageCount(ctx)
	if err != nil {
		slog.Warn("usage lookup failed for status", "error", err)
		return types.QuotaStatus{
			Limit:    t.limit,
			Message:  "Could not load quota",
			Subtitle: "Check your connection",
			ResetsAt: startOfNextMonth(t.now().UTC()),
		}
	}
	return t.freeStatus(used)
}

// freeStatus renders the free-tier snapshot for a known usage count.
func (t *Tracker) freeStatus(used int) types.QuotaStatus {
	resetsAt := startOfNextMonth(t.now().UTC())
	remaining := t.limit - used
	if remaining < 0 {
		remaining = 0
	}
	days := daysUntil(t.now().UTC(), resetsAt)
	return types.QuotaStatus{
		Used:      used,
		Remaining: remaining,
		Limit:     t.limit,
		Message:   fmt.Sprintf("%d %s remaining", remaining, plural(remaining, "scan", "scans")),
		Subtitle:  fmt.Sprintf("Resets in %d %s", days, plural(days, "day", "days")),
		ResetsAt:  resetsAt,
	}
}

// Refresh forces an entitlement re-read from the billing provider and
// mirrors the result onto the cloud identity. A failed mirror does not
// fail the refresh — the entitlement itself still works.
func (t *Tracker) Refresh(ctx context.Context) (*types.Entitlement, error) {
	if t.overrides.Enabled(OverrideEntitlementFail) {
		return nil, errors.New("entitlement refresh forced to fail")
	}

	ent, err := t.billing.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh entitlement: %w", err)
	}
	if t.syncer != nil {
		if err := t.syncer.SyncEntitlement(ctx, *ent); err != nil {
			slog.Warn("entitlement sync failed", "error", err)
		}
	}
	return ent, nil
}

// entitlement resolves the effective tier. A billing failure means the
// identity is treated as free rather than blocking the user.
func (t *Tracker) entitlement(ctx context.Context) types.Entitlement {
	if t.overrides.Enabled(OverrideForceFreeTier) {
		return types.Entitlement{Tier: types.TierFree}
	}
	ent, err := t.billing.Entitlement(ctx)
	if err != nil {
		slog.Warn("entitlement lookup failed, assuming free tier", "error", err)
		return types.Entitlement{Tier: types.TierFree}
	}
	return *ent
}

func (t *Tracker) usageCount(ctx context.Context) (int, error) {
	if t.overrides.Enabled(OverrideQuotaCheckFail) {
		return 0, errors.New("usage lookup forced to fail")
	}
	return t.usage.UsageCount(ctx)
}

func startOfNextMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

func daysUntil(now, then time.Time) int {
	d := int(then.Sub(now).Hours() / 24)
	if d < 1 {
		d = 1
	}
	return d
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
