package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/driftworks/tacklebox/internal/repository"
)

type createCatchRequest struct {
	FishSpecies string     `json:"fish_species"`
	Weight      *float64   `json:"weight"`
	WeightUnit  string     `json:"weight_unit"`
	Length      *float64   `json:"length"`
	LengthUnit  string     `json:"length_unit"`
	Location    string     `json:"location"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Notes       string     `json:"notes"`
	ImageURL    string     `json:"image_url"`
	CatchDate   *time.Time `json:"catch_date"`
}

// CreateCatch handles POST /api/v1/lures/{id}/catches
func (h *Handler) CreateCatch(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	var req createCatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if req.ImageURL == "" {
		WriteProblem(w, r, http.StatusUnprocessableEntity, "image_url is required")
		return
	}

	catchDate := time.Now().UTC()
	if req.CatchDate != nil {
		catchDate = *req.CatchDate
	}

	_, err := h.repo.InsertCatch(r.Context(), repository.Catch{
		LureID:      chi.URLParam(r, "id"),
		UserID:      userID,
		FishSpecies: req.FishSpecies,
		Weight:      req.Weight,
		WeightUnit:  req.WeightUnit,
		Length:      req.Length,
		LengthUnit:  req.LengthUnit,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Notes:       req.Notes,
		ImageURL:    req.ImageURL,
		CatchDate:   catchDate,
	})
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}

	// Respond with the refreshed lure so the client sees the new count.
	lure, err := h.repo.GetLure(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderLure(lure))
}

type patchCatchRequest struct {
	FishSpecies *string    `json:"fish_species"`
	Weight      *float64   `json:"weight"`
	WeightUnit  *string    `json:"weight_unit"`
	Length      *float64   `json:"length"`
	LengthUnit  *string    `json:"length_unit"`
	Location    *string    `json:"location"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Notes       *string    `json:"notes"`
	ImageURL    *string    `json:"image_url"`
	CatchDate   *time.Time `json:"catch_date"`
}

// PatchCatch handles PATCH /api/v1/lures/{id}/catches/{catchID}
func (h *Handler) PatchCatch(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	var req patchCatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if req.ImageURL != nil && *req.ImageURL == "" {
		WriteProblem(w, r, http.StatusUnprocessableEntity, "image_url cannot be cleared")
		return
	}

	c, err := h.repo.UpdateCatch(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "catchID"), repository.CatchPatch{
		FishSpecies: req.FishSpecies,
		Weight:      req.Weight,
		WeightUnit:  req.WeightUnit,
		Length:      req.Length,
		LengthUnit:  req.LengthUnit,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Notes:       req.Notes,
		ImageURL:    req.ImageURL,
		CatchDate:   req.CatchDate,
	})
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderCatch(c))
}

// ListCatchLocations handles GET /api/v1/catches/locations. It returns
// the user's catches that carry coordinates, for map display.
func (h *Handler) ListCatchLocations(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	catches, err := h.repo.ListCatchesWithLocation(r.Context(), userID)
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	out := make([]catchJSON, 0, len(catches))
	for i := range catches {
		out = append(out, renderCatch(&catches[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteCatch handles DELETE /api/v1/lures/{id}/catches/{catchID}
func (h *Handler) DeleteCatch(w http.ResponseWriter, r *http.Request) {
	userID := MustUserIDFromContext(r.Context())

	err := h.repo.DeleteCatch(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "catchID"))
	if err != nil {
		MapRepositoryError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
