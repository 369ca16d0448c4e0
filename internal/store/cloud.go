package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/driftworks/tacklebox/internal/types"
)

// Session supplies the access token for the signed-in identity. An empty
// token or an error means there is no live session.
type Session interface {
	Token(ctx context.Context) (string, error)
}

// Cloud is the adapter over the account-scoped REST rows. Row-level
// consistency is enforced remotely, so unlike Local it carries no write
// lock. Remote field names never escape this file.
type Cloud struct {
	baseURL string
	session Session
	client  *http.Client
}

var _ Adapter = (*Cloud)(nil)

// NewCloud creates a cloud adapter for the service at baseURL.
func NewCloud(baseURL string, session Session) *Cloud {
	return &Cloud{
		baseURL: baseURL,
		session: session,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// remoteLure is the wire shape of a lure_analyses row.
type remoteLure struct {
	ID         string         `json:"id"`
	LureType   string         `json:"lure_type"`
	Confidence int            `json:"confidence"`
	ImageURL   string         `json:"image_url"`
	Details    map[string]any `json:"lure_details,omitempty"`
	IsFavorite bool           `json:"is_favorite"`
	CatchCount int            `json:"catch_count"`
	Catches    []remoteCatch  `json:"catches"`
	CreatedAt  time.Time      `json:"created_at"`
}

// remoteCatch is the wire shape of a catches row.
type remoteCatch struct {
	ID          string   `json:"id"`
	LureID      string   `json:"lure_analysis_id"`
	FishSpecies string   `json:"fish_species"`
	Weight      *float64 `json:"weight,omitempty"`
	WeightUnit  string   `json:"weight_unit,omitempty"`
	Length      *float64 `json:"length,omitempty"`
	LengthUnit  string   `json:"length_unit,omitempty"`
	Location    string   `json:"location,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	ImageURL    string   `json:"image_url"`
	CatchDate   time.Time `json:"catch_date"`
}

func (r remoteLure) canonical() types.LureRecord {
	rec := types.LureRecord{
		ID:         r.ID,
		ImageURI:   r.ImageURL,
		LureType:   r.LureType,
		Confidence: r.Confidence,
		Details:    r.Details,
		IsFavorite: r.IsFavorite,
		Catches:    make([]types.CatchRecord, 0, len(r.Catches)),
		Timestamp:  r.CreatedAt,
	}
	for _, c := range r.Catches {
		rec.Catches = append(rec.Catches, c.canonical())
	}
	rec.RecomputeCatchCount()
	return rec
}

func (r remoteCatch) canonical() types.CatchRecord {
	rec := types.CatchRecord{
		ID:          r.ID,
		LureID:      r.LureID,
		ImageURI:    r.ImageURL,
		FishSpecies: r.FishSpecies,
		Location:    r.Location,
		Notes:       r.Notes,
		Timestamp:   r.CatchDate,
	}
	if r.Weight != nil {
		rec.Weight = &types.Weight{Value: *r.Weight, Unit: types.WeightUnit(r.WeightUnit)}
	}
	if r.Length != nil {
		rec.Length = &types.Length{Value: *r.Length, Unit: types.LengthUnit(r.LengthUnit)}
	}
	if r.Latitude != nil && r.Longitude != nil {
		rec.Coordinate = &types.GeoPoint{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return rec
}

// newCatchPayload maps a canonical catch input onto the wire fields.
func newCatchPayload(c types.NewCatch) map[string]any {
	payload := map[string]any{
		"image_url":    c.ImageURI,
		"fish_species": c.FishSpecies,
		"location":     c.Location,
		"notes":        c.Notes,
	}
	if c.Weight != nil {
		payload["weight"] = c.Weight.Value
		payload["weight_unit"] = string(c.Weight.Unit)
	}
	if c.Length != nil {
		payload["length"] = c.Length.Value
		payload["length_unit"] = string(c.Length.Unit)
	}
	if c.Coordinate != nil {
		payload["latitude"] = c.Coordinate.Latitude
		payload["longitude"] = c.Coordinate.Longitude
	}
	return payload
}

func catchPatchPayload(p types.CatchPatch) map[string]any {
	payload := map[string]any{}
	if p.ImageURI != nil {
		payload["image_url"] = *p.ImageURI
	}
	if p.FishSpecies != nil {
		payload["fish_species"] = *p.FishSpecies
	}
	if p.Weight != nil {
		payload["weight"] = p.Weight.Value
		payload["weight_unit"] = string(p.Weight.Unit)
	}
	if p.Length != nil {
		payload["length"] = p.Length.Value
		payload["length_unit"] = string(p.Length.Unit)
	}
	if p.Location != nil {
		payload["location"] = *p.Location
	}
	if p.Coordinate != nil {
		payload["latitude"] = p.Coordinate.Latitude
		payload["longitude"] = p.Coordinate.Longitude
	}
	if p.Notes != nil {
		payload["notes"] = *p.Notes
	}
	return payload
}

// List returns the account's lures, newest first.
func (c *Cloud) List(ctx context.Context) ([]types.LureRecord, error) {
	var rows []remoteLure
	if err := c.do(ctx, http.MethodGet, "/api/v1/lures", nil, &rows); err != nil {
		return nil, err
	}
	lures := make([]types.LureRecord, 0, len(rows))
	for _, row := range rows {
		lures = append(lures, row.canonical())
	}
	return lures, nil
}

// Save inserts a lure row; the server assigns the UUID.
func (c *Cloud) Save(ctx context.Context, lure types.NewLure) (*types.LureRecord, error) {
	if err := types.ValidateNewLure(lure); err != nil {
		return nil, Invalid(err)
	}

	payload := map[string]any{
		"lure_type":    lure.LureType,
		"confidence":   lure.Confidence,
		"image_url":    lure.ImageURI,
		"lure_details": lure.Details,
	}
	var row remoteLure
	if err := c.do(ctx, http.MethodPost, "/api/v1/lures", payload, &row); err != nil {
		return nil, err
	}
	rec := row.canonical()
	return &rec, nil
}

// Get returns a single lure row, catches embedded.
func (c *Cloud) Get(ctx context.Context, id string) (*types.LureRecord, error) {
	var row remoteLure
	if err := c.do(ctx, http.MethodGet, "/api/v1/lures/"+id, nil, &row); err != nil {
		return nil, err
	}
	rec := row.canonical()
	return &rec, nil
}

// Update applies a lure patch.
func (c *Cloud) Update(ctx context.Context, id string, patch types.LurePatch) (*types.LureRecord, error) {
	payload := map[string]any{}
	if patch.IsFavorite != nil {
		payload["is_favorite"] = *patch.IsFavorite
	}
	var row remoteLure
	if err := c.do(ctx, http.MethodPatch, "/api/v1/lures/"+id, payload, &row); err != nil {
		return nil, err
	}
	rec := row.canonical()
	return &rec, nil
}

// ToggleFavorite reads the row and flips the flag. The remote store has
// no toggle primitive, so this is get-then-patch; last writer wins.
func (c *Cloud) ToggleFavorite(ctx context.Context, id string) (*types.LureRecord, error) {
	rec, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fav := !rec.IsFavorite
	return c.Update(ctx, id, types.LurePatch{IsFavorite: &fav})
}

// Delete removes the row; the server cascades to its catches.
func (c *Cloud) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/lures/"+id, nil, nil)
}

// AddCatch inserts a catch row and returns the refreshed lure.
func (c *Cloud) AddCatch(ctx context.Context, lureID string, nc types.NewCatch) (*types.LureRecord, error) {
	if err := types.ValidateNewCatch(nc); err != nil {
		return nil, Invalid(err)
	}

	var row remoteLure
	path := "/api/v1/lures/" + lureID + "/catches"
	if err := c.do(ctx, http.MethodPost, path, newCatchPayload(nc), &row); err != nil {
		return nil, err
	}
	rec := row.canonical()
	return &rec, nil
}

// UpdateCatch patches a catch row.
func (c *Cloud) UpdateCatch(ctx context.Context, lureID, catchID string, patch types.CatchPatch) (*types.CatchRecord, error) {
	if err := types.ValidateCatchPatch(patch); err != nil {
		return nil, Invalid(err)
	}

	var row remoteCatch
	path := "/api/v1/lures/" + lureID + "/catches/" + catchID
	if err := c.do(ctx, http.MethodPatch, path, catchPatchPayload(patch), &row); err != nil {
		return nil, err
	}
	rec := row.canonical()
	return &rec, nil
}

// DeleteCatch removes a catch row and returns the refreshed lure.
func (c *Cloud) DeleteCatch(ctx context.Context, lureID, catchID string) (*types.LureRecord, error) {
	path := "/api/v1/lures/" + lureID + "/catches/" + catchID
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return nil, err
	}
	return c.Get(ctx, lureID)
}

// CatchesWithLocation returns the account's catches that carry
// coordinates, newest first.
func (c *Cloud) CatchesWithLocation(ctx context.Context) ([]types.CatchRecord, error) {
	var rows []remoteCatch
	if err := c.do(ctx, http.MethodGet, "/api/v1/catches/locations", nil, &rows); err != nil {
		return nil, err
	}
	catches := make([]types.CatchRecord, 0, len(rows))
	for _, r := range rows {
		catches = append(catches, r.canonical())
	}
	return catches, nil
}

// UsageCount returns this period's identification count for the identity.
func (c *Cloud) UsageCount(ctx context.Context) (int, error) {
	var resp struct {
		Used int `json:"used"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/quota", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Used, nil
}

// IncrementUsage records one successful identification and returns the
// new count. The counter lives server-side so it survives reinstalls.
func (c *Cloud) IncrementUsage(ctx context.Context) (int, error) {
	var resp struct {
		Used int `json:"used"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/quota/usage", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Used, nil
}

// Subscription reads the entitlement mirrored on the cloud identity.
func (c *Cloud) Subscription(ctx context.Context) (*types.Entitlement, error) {
	var resp struct {
		IsPro     bool       `json:"is_pro"`
		Type      string     `json:"subscription_type,omitempty"`
		ProductID string     `json:"product_identifier,omitempty"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
		WillRenew bool       `json:"will_renew"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/subscription", nil, &resp); err != nil {
		return nil, err
	}
	ent := types.Entitlement{Tier: types.TierFree, ProductID: resp.ProductID, ExpiresAt: resp.ExpiresAt, WillRenew: resp.WillRenew}
	if resp.IsPro {
		ent.Tier = types.TierPro
		if resp.Type == "lifetime" {
			ent.Tier = types.TierUnlimited
		}
	}
	return &ent, nil
}

// SyncEntitlement mirrors the billing-side entitlement onto the cloud
// identity record for cross-device consistency.
func (c *Cloud) SyncEntitlement(ctx context.Context, ent types.Entitlement) error {
	payload := map[string]any{
		"is_pro":             ent.Entitled(),
		"product_identifier": ent.ProductID,
		"will_renew":         ent.WillRenew,
	}
	if ent.Tier == types.TierUnlimited {
		payload["subscription_type"] = "lifetime"
	}
	if ent.ExpiresAt != nil {
		payload["expires_at"] = ent.ExpiresAt.Format(time.RFC3339)
	}
	return c.do(ctx, http.MethodPut, "/api/v1/subscription", payload, nil)
}

// do sends one authenticated request and maps the outcome onto the error
// taxonomy. Session problems are ErrAuth before the request is ever sent;
// network failures and timeouts are ErrTransient.
func (c *Cloud) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.session.Token(ctx)
	if err != nil {
		return fmt.Errorf("session: %v: %w", err, ErrAuth)
	}
	if token == "" {
		return fmt.Errorf("no session: %w", ErrAuth)
	}

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Transient(method+" "+path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, ErrAuth)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, ErrValidation)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	default:
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, ErrTransient)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Transient("decode response", err)
	}
	return nil
}
