package types

import "time"

// Tier is the subscription level governing the identification quota.
type Tier string

const (
	TierFree      Tier = "free"
	TierPro       Tier = "pro"
	TierUnlimited Tier = "unlimited"
)

// Entitlement is the billing-side subscription state for an identity. It
// is mirrored to the cloud identity record after every refresh so other
// devices see the same tier.
type Entitlement struct {
	Tier      Tier       `json:"tier"`
	ProductID string     `json:"productId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	WillRenew bool       `json:"willRenew"`
}

// Entitled reports whether the tier bypasses the free quota.
func (e Entitlement) Entitled() bool {
	return e.Tier == TierPro || e.Tier == TierUnlimited
}
