package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/driftworks/tacklebox/internal/repository"
)

// Handler implements the API handlers over the repository.
type Handler struct {
	repo    *repository.Postgres
	secret  []byte
	version string
}

// NewHandler creates a new Handler.
func NewHandler(repo *repository.Postgres, secret []byte, version string) *Handler {
	return &Handler{
		repo:    repo,
		secret:  secret,
		version: version,
	}
}

// lureJSON is the wire shape of a lure row.
type lureJSON struct {
	ID         string          `json:"id"`
	LureType   string          `json:"lure_type"`
	Confidence int             `json:"confidence"`
	ImageURL   string          `json:"image_url"`
	Details    json.RawMessage `json:"lure_details,omitempty"`
	IsFavorite bool            `json:"is_favorite"`
	CatchCount int             `json:"catch_count"`
	Catches    []catchJSON     `json:"catches"`
	CreatedAt  time.Time       `json:"created_at"`
}

// catchJSON is the wire shape of a catch row.
type catchJSON struct {
	ID          string    `json:"id"`
	LureID      string    `json:"lure_analysis_id"`
	FishSpecies string    `json:"fish_species"`
	Weight      *float64  `json:"weight,omitempty"`
	WeightUnit  string    `json:"weight_unit,omitempty"`
	Length      *float64  `json:"length,omitempty"`
	LengthUnit  string    `json:"length_unit,omitempty"`
	Location    string    `json:"location,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	ImageURL    string    `json:"image_url"`
	CatchDate   time.Time `json:"catch_date"`
}

func renderLure(l *repository.Lure) lureJSON {
	out := lureJSON{
		ID:         l.ID,
		LureType:   l.LureType,
		Confidence: l.Confidence,
		ImageURL:   l.ImageURL,
		Details:    json.RawMessage(l.Details),
		IsFavorite: l.IsFavorite,
		CatchCount: l.CatchCount(),
		Catches:    make([]catchJSON, 0, len(l.Catches)),
		CreatedAt:  l.CreatedAt,
	}
	for i := range l.Catches {
		out.Catches = append(out.Catches, renderCatch(&l.Catches[i]))
	}
	return out
}

func renderCatch(c *repository.Catch) catchJSON {
	return catchJSON{
		ID:          c.ID,
		LureID:      c.LureID,
		FishSpecies: c.FishSpecies,
		Weight:      c.Weight,
		WeightUnit:  c.WeightUnit,
		Length:      c.Length,
		LengthUnit:  c.LengthUnit,
		Location:    c.Location,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		Notes:       c.Notes,
		ImageURL:    c.ImageURL,
		CatchDate:   c.CatchDate,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Health returns the health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := h.repo.DB.PingContext(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// ListLures handles GET /api/v1/lures
func (h *Handler) ListLures(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	lures, err := h.repo.ListLures(r.Context(), userID)
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	out := make([]lureJSON, 0, len(lures))
	for i := range lures {
		out = append(out, renderLure(&lures[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type createLureRequest struct {
	LureType   string          `json:"lure_type"`
	Confidence int             `json:"confidence"`
	ImageURL   string          `json:"image_url"`
	Details    json.RawMessage `json:"lure_details"`
}

// CreateLure handles POST /api/v1/lures
func (h *Handler) CreateLure(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	var req createLureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if req.ImageURL == "" {
		WriteProblem(w, r, http.StatusUnprocessableEntity, "image_url is required")
		return
	}
	if req.Confidence < 0 || req.Confidence > 100 {
		WriteProblem(w, r, http.StatusUnprocessableEntity, "confidence must be between 0 and 100")
		return
	}

	lure, err := h.repo.InsertLure(r.Context(), repository.Lure{
		UserID:     userID,
		LureType:   req.LureType,
		Confidence: req.Confidence,
		ImageURL:   req.ImageURL,
		Details:    []byte(req.Details),
	})
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderLure(lure))
}

// GetLure handles GET /api/v1/lures/{id}
func (h *Handler) GetLure(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	lure, err := h.repo.GetLure(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderLure(lure))
}

type patchLureRequest struct {
	IsFavorite *bool `json:"is_favorite"`
}

// PatchLure handles PATCH /api/v1/lures/{id}
func (h *Handler) PatchLure(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	var req patchLureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	id := chi.URLParam(r, "id")
	if req.IsFavorite == nil {
		// Nothing to change; return the current row.
		lure, err := h.repo.GetLure(r.Context(), userID, id)
		if err != nil {
			MapRepositoryError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, renderLure(lure))
		return
	}

	lure, err := h.repo.SetFavorite(r.Context(), userID, id, *req.IsFavorite)
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderLure(lure))
}

// DeleteLure handles DELETE /api/v1/lures/{id}
func (h *Handler) DeleteLure(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	if err := h.repo.DeleteLure(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
