package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/driftworks/tacklebox/internal/repository"
)

// GetQuota handles GET /api/v1/quota
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	used, err := h.repo.UsageCount(r.Context(), userID, time.Now())
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"used": used})
}

// IncrementQuota handles POST /api/v1/quota/usage
func (h *Handler) IncrementQuota(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	used, err := h.repo.IncrementUsage(r.Context(), userID, time.Now())
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"used": used})
}

type subscriptionJSON struct {
	IsPro     bool       `json:"is_pro"`
	Type      string     `json:"subscription_type,omitempty"`
	ProductID string     `json:"product_identifier,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	WillRenew bool       `json:"will_renew"`
}

// GetSubscription handles GET /api/v1/subscription
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	sub, err := h.repo.GetSubscription(r.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		// Never-synced identities are free tier.
		writeJSON(w, http.StatusOK, subscriptionJSON{IsPro: false})
		return
	}
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionJSON{
		IsPro:     sub.IsPro,
		Type:      sub.Type,
		ProductID: sub.ProductID,
		ExpiresAt: sub.ExpiresAt,
		WillRenew: sub.WillRenew,
	})
}

// PutSubscription handles PUT /api/v1/subscription
func (h *Handler) PutSubscription(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	var req subscriptionJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	err := h.repo.UpsertSubscription(r.Context(), repository.Subscription{
		UserID:    userID,
		IsPro:     req.IsPro,
		Type:      req.Type,
		ProductID: req.ProductID,
		ExpiresAt: req.ExpiresAt,
		WillRenew: req.WillRenew,
	})
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
