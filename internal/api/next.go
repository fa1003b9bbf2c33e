package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SergeyBurlaka/muzei/internal/handler"
	"github.com/SergeyBurlaka/muzei/internal/provider"
	muzeisync "github.com/SergeyBurlaka/muzei/internal/sync"

	"github.com/twmb/murmur3"
)

// Advances the rotation by one artwork
func (a *API) nextHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	var artwork interface{}
	var err error

	if seed := r.URL.Query().Get("seed"); seed != "" {
		artwork, err = a.Manager.NextArtworkWithSeed(r.Context(), int64(murmur3.StringSum64(seed)))
	} else {
		artwork, err = a.Manager.NextArtwork(r.Context())
	}

	if err != nil {
		switch {
		case errors.Is(err, muzeisync.ErrNoProviderSelected):
			return handler.PreconditionFailed("no provider selected")
		case errors.Is(err, muzeisync.ErrNoAlternativeArtwork):
			return handler.Conflict("no alternative artwork to rotate to")
		case errors.Is(err, muzeisync.ErrNoArtworkAvailable):
			return handler.ServiceUnavailable("no artwork available yet")
		case provider.IsRemote(err):
			a.logError(r, "provider unreachable during load", err)
			return handler.ServiceUnavailable("provider unreachable")
		default:
			a.logError(r, "error loading artwork", err)
			return handler.InternalServerError()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if err := json.NewEncoder(w).Encode(artwork); err != nil {
		a.logError(r, "error encoding artwork", err)
		return handler.InternalServerError()
	}

	return nil
}
