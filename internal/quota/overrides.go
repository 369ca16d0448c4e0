package quota

import "sync"

// Override names a forced outcome the tracker substitutes for its real
// contract behavior. Overrides exist to exercise denial and failure paths
// without a real billing event.
type Override string

const (
	// OverrideForceFreeTier treats the identity as free even when the
	// billing provider reports pro.
	OverrideForceFreeTier Override = "FORCE_FREE_TIER"
	// OverrideQuotaExceeded forces every quota check to report exhausted.
	OverrideQuotaExceeded Override = "QUOTA_EXCEEDED"
	// OverrideQuotaCheckFail makes the usage lookup fail.
	OverrideQuotaCheckFail Override = "QUOTA_CHECK_FAIL"
	// OverrideEntitlementFail makes entitlement refresh fail.
	OverrideEntitlementFail Override = "ENTITLEMENT_FAIL"
)

// Overrides is an injectable, process-scoped set of forced outcomes. It
// is plain state handed to the tracker at construction so tests run in
// isolation; nothing here survives a restart.
type Overrides struct {
	mu  sync.Mutex
	set map[Override]bool
}

// NewOverrides returns an empty override set.
func NewOverrides() *Overrides {
	return &Overrides{set: map[Override]bool{}}
}

// Set enables or disables one override.
func (o *Overrides) Set(name Override, on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if on {
		o.set[name] = true
	} else {
		delete(o.set, name)
	}
}

// Enabled reports whether an override is active. A nil receiver is a
// permanently-empty set, so production wiring can pass nil.
func (o *Overrides) Enabled(name Override) bool {
	if o == nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.set[name]
}

// Clear removes every override in one call.
func (o *Overrides) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.set = map[Override]bool{}
}

// Active returns the currently enabled override names.
func (o *Overrides) Active() []Override {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]Override, 0, len(o.set))
	for name := range o.set {
		names = append(names, name)
	}
	return names
}
