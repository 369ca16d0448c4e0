// Package tackle is the device-facing client. It wires the local and
// cloud stores behind the routing layer, the identification pipeline,
// and the quota tracker into one API.
package tackle

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftworks/tacklebox/internal/billing"
	"github.com/driftworks/tacklebox/internal/config"
	"github.com/driftworks/tacklebox/internal/identify"
	"github.com/driftworks/tacklebox/internal/photos"
	"github.com/driftworks/tacklebox/internal/quota"
	"github.com/driftworks/tacklebox/internal/store"
	"github.com/driftworks/tacklebox/internal/types"
)

// Client is the tackle box client.
type Client struct {
	session    *Session
	local      *store.Local
	cloud      *store.Cloud
	router     *store.Router
	tracker    *quota.Tracker
	identifier identify.Identifier
	uploader   photos.Uploader
	overrides  *quota.Overrides
}

// New creates a client from configuration. The local store is always
// opened; cloud, billing, and photo components come up disabled when
// unconfigured and every flow degrades to local-only behavior.
func New(cfg *config.Config) (*Client, error) {
	if cfg.Local.Path == "" {
		return nil, errors.New("local store path is required")
	}

	local, err := store.NewLocal(cfg.Local.Path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	session := NewSession()
	cloud := store.NewCloud(cfg.Cloud.BaseURL, session)
	overrides := quota.NewOverrides()

	uploader, err := photos.NewUploader(cfg.Photos)
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("photo storage: %w", err)
	}

	c := &Client{
		session:    session,
		local:      local,
		cloud:      cloud,
		router:     store.NewRouter(local, cloud, session),
		tracker:    quota.NewTracker(billing.New(cfg.Billing.BaseURL, cfg.Billing.APIKey, session), cloud, cloud, overrides),
		identifier: identify.NewOpenAI(cfg.Identify.APIKey, cfg.Identify.Model),
		uploader:   uploader,
		overrides:  overrides,
	}
	return c, nil
}

// Close releases the local store.
func (c *Client) Close() error {
	return c.local.Close()
}

// Session returns the session for sign-in and sign-out.
func (c *Client) Session() *Session {
	return c.session
}

// Overrides returns the test override switches.
func (c *Client) Overrides() *quota.Overrides {
	return c.overrides
}

// IdentifyLure runs the full identification flow: quota gate, vision
// analysis, persist, then usage recording. A quota denial surfaces as
// *quota.ExceededError before any model call is made. Usage recording
// failures do not fail the scan.
func (c *Client) IdentifyLure(ctx context.Context, imageDataURI string) (*types.LureRecord, error) {
	if err := c.tracker.Allow(ctx); err != nil {
		return nil, err
	}

	result, err := c.identifier.Identify(ctx, imageDataURI)
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	rec, err := c.router.Save(ctx, result.NewLure(c.uploadPhoto(ctx, imageDataURI)))
	if err != nil {
		return nil, err
	}

	if _, err := c.tracker.Recorded(ctx); err != nil {
		// The scan already succeeded; dropping a count is the lesser harm.
		slog.Warn("usage recording failed", "error", err)
	}
	return rec, nil
}

// uploadPhoto pushes a captured photo to shared storage and returns the
// URL to persist on the record. The device URI is kept verbatim when the
// user is signed out, storage is not configured, the URI is not a data
// URI, or the upload fails: a lost upload must never lose the capture.
func (c *Client) uploadPhoto(ctx context.Context, imageURI string) string {
	userID, ok := c.session.UserID(ctx)
	if !ok {
		return imageURI
	}
	data, ok := decodeDataURI(imageURI)
	if !ok {
		return imageURI
	}
	url, err := c.uploader.Upload(ctx, userID, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if !errors.Is(err, photos.ErrNotConfigured) {
			slog.Warn("photo upload failed, keeping device uri", "error", err)
		}
		return imageURI
	}
	return url
}

// decodeDataURI extracts the payload of a base64 data URI. Anything else
// (a file path, an http URL) is not uploadable from here.
func decodeDataURI(uri string) ([]byte, bool) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, false
	}
	i := strings.Index(uri, ",")
	if i < 0 || !strings.HasSuffix(uri[:i], ";base64") {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(uri[i+1:])
	if err != nil {
		return nil, false
	}
	return data, true
}

// Lures lists the visible tackle box, newest first.
func (c *Client) Lures(ctx context.Context) ([]types.LureRecord, error) {
	return c.router.List(ctx)
}

// Lure fetches one lure by identifier.
func (c *Client) Lure(ctx context.Context, id string) (*types.LureRecord, error) {
	return c.router.Get(ctx, id)
}

// ToggleFavorite flips the favorite flag on a lure.
func (c *Client) ToggleFavorite(ctx context.Context, id string) (*types.LureRecord, error) {
	return c.router.ToggleFavorite(ctx, id)
}

// DeleteLure removes a lure and its catches.
func (c *Client) DeleteLure(ctx context.Context, id string) error {
	return c.router.Delete(ctx, id)
}

// LogCatch records a catch against a lure.
func (c *Client) LogCatch(ctx context.Context, lureID string, nc types.NewCatch) (*types.LureRecord, error) {
	nc.ImageURI = c.uploadPhoto(ctx, nc.ImageURI)
	return c.router.AddCatch(ctx, lureID, nc)
}

// CatchesWithLocation lists every catch carrying coordinates, for the
// map view.
func (c *Client) CatchesWithLocation(ctx context.Context) ([]types.CatchRecord, error) {
	return c.router.CatchesWithLocation(ctx)
}

// UpdateCatch applies a partial catch edit.
func (c *Client) UpdateCatch(ctx context.Context, lureID, catchID string, patch types.CatchPatch) (*types.CatchRecord, error) {
	return c.router.UpdateCatch(ctx, lureID, catchID, patch)
}

// DeleteCatch removes one catch from a lure.
func (c *Client) DeleteCatch(ctx context.Context, lureID, catchID string) (*types.LureRecord, error) {
	return c.router.DeleteCatch(ctx, lureID, catchID)
}

// Quota reports the current scan allowance.
func (c *Client) Quota(ctx context.Context) types.QuotaStatus {
	return c.tracker.Status(ctx)
}

// RefreshEntitlement re-reads the billing entitlement and mirrors it
// onto the cloud account.
func (c *Client) RefreshEntitlement(ctx context.Context) (*types.Entitlement, error) {
	return c.tracker.Refresh(ctx)
}

// Stats summarizes the local tackle box contents.
func (c *Client) Stats(ctx context.Context) (*types.TackleBoxStats, error) {
	return c.local.Stats(ctx)
}

// ResetLocal clears the local slot, recovering from corrupt data.
func (c *Client) ResetLocal(ctx context.Context) error {
	return c.local.Clear(ctx)
}
