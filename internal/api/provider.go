package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/SergeyBurlaka/muzei/internal/database"
	"github.com/SergeyBurlaka/muzei/internal/handler"
)

// ProviderInfo describes the selected provider and its capabilities
type ProviderInfo struct {
	ComponentName       string  `json:"component_name"`
	MaxLoadedArtworkID  int64   `json:"max_loaded_artwork_id"`
	RecentArtworkIDs    []int64 `json:"recent_artwork_ids"`
	Description         string  `json:"description,omitempty"`
	SupportsNextArtwork bool    `json:"supports_next_artwork"`
}

func (a *API) providerInfo(r *http.Request, prov *database.Provider) ProviderInfo {
	ctx := r.Context()

	return ProviderInfo{
		ComponentName:       prov.ComponentName,
		MaxLoadedArtworkID:  prov.MaxLoadedArtworkID,
		RecentArtworkIDs:    []int64(prov.RecentArtworkIDs),
		Description:         a.Manager.Description(ctx, prov.ComponentName),
		SupportsNextArtwork: a.Manager.SupportsNextArtwork(ctx, prov.ComponentName),
	}
}

// Returns the selected provider
func (a *API) providerHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	prov, err := a.Database.GetProvider(r.Context())
	if err != nil {
		if errors.Is(err, database.ErrNoProvider) {
			return handler.NotFound("no provider selected")
		}

		a.logError(r, "error getting provider from database", err)
		return handler.InternalServerError()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if err := json.NewEncoder(w).Encode(a.providerInfo(r, prov)); err != nil {
		a.logError(r, "error encoding provider info", err)
		return handler.InternalServerError()
	}

	return nil
}

// Selects a provider
func (a *API) selectProviderHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	var body struct {
		ComponentName string `json:"component_name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return handler.BadRequest("invalid request body")
	}

	componentName := strings.TrimSpace(body.ComponentName)
	if componentName == "" {
		return handler.BadRequest("component_name is required")
	}

	prov, err := a.Manager.SelectProvider(r.Context(), componentName)
	if err != nil {
		a.logError(r, "error selecting provider", err)
		return handler.InternalServerError()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if err := json.NewEncoder(w).Encode(a.providerInfo(r, prov)); err != nil {
		a.logError(r, "error encoding provider info", err)
		return handler.InternalServerError()
	}

	return nil
}
