// Package billing talks to the subscription backend (a RevenueCat-style
// REST API) and resolves the identity's entitlement.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/driftworks/tacklebox/internal/types"
)

// Product identifiers configured in the billing dashboard.
const (
	ProductMonthly  = "fishing_lure_pro_monthly"
	ProductYearly   = "fishing_lure_pro_yearly"
	ProductLifetime = "fishing_lure_lifetime"
)

// entitlementID is the single entitlement gate configured for the app.
const entitlementID = "pro"

// Identity supplies the app user id purchases are keyed on.
type Identity interface {
	UserID(ctx context.Context) (string, bool)
}

// Client fetches subscriber state from the billing backend. Entitlement
// serves a cached copy; Refresh always round-trips.
type Client struct {
	baseURL  string
	apiKey   string
	identity Identity
	client   *http.Client

	mu     sync.Mutex
	cached *types.Entitlement
}

// New creates a billing client.
func New(baseURL, apiKey string, identity Identity) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		identity: identity,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Entitlement returns the cached entitlement, fetching once when the
// cache is cold.
func (c *Client) Entitlement(ctx context.Context) (*types.Entitlement, error) {
	c.mu.Lock()
	cached := c.cached
	c.mu.Unlock()
	if cached != nil {
		ent := *cached
		return &ent, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches the subscriber record and recomputes the entitlement.
func (c *Client) Refresh(ctx context.Context) (*types.Entitlement, error) {
	userID, ok := c.identity.UserID(ctx)
	if !ok {
		// Signed-out users are free tier; nothing to fetch.
		return &types.Entitlement{Tier: types.TierFree}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/subscribers/"+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("build subscriber request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch subscriber: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch subscriber: status %d", resp.StatusCode)
	}

	var payload subscriberResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode subscriber: %w", err)
	}

	ent := payload.entitlement(time.Now())
	c.mu.Lock()
	c.cached = &ent
	c.mu.Unlock()
	return &ent, nil
}

type subscriberResponse struct {
	Subscriber struct {
		Entitlements map[string]struct {
			ExpiresDate       *time.Time `json:"expires_date"`
			ProductIdentifier string     `json:"product_identifier"`
		} `json:"entitlements"`
	} `json:"subscriber"`
}

// entitlement derives the tier from the subscriber record. An absent or
// expired entitlement is free; the lifetime product never expires and
// maps to unlimited.
func (r subscriberResponse) entitlement(now time.Time) types.Entitlement {
	grant, ok := r.Subscriber.Entitlements[entitlementID]
	if !ok {
		return types.Entitlement{Tier: types.TierFree}
	}
	if grant.ExpiresDate != nil && grant.ExpiresDate.Before(now) {
		return types.Entitlement{Tier: types.TierFree}
	}

	ent := types.Entitlement{
		Tier:      types.TierPro,
		ProductID: grant.ProductIdentifier,
		ExpiresAt: grant.ExpiresDate,
		WillRenew: grant.ExpiresDate != nil,
	}
	if grant.ProductIdentifier == ProductLifetime {
		ent.Tier = types.TierUnlimited
		ent.WillRenew = false
	}
	return ent
}
