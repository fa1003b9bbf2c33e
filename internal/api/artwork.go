package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/SergeyBurlaka/muzei/internal/database"
	"github.com/SergeyBurlaka/muzei/internal/handler"
	"github.com/SergeyBurlaka/muzei/internal/provider"
	"github.com/SergeyBurlaka/muzei/internal/storage"

	"github.com/gorilla/mux"
)

const (
	// Default number of items per page
	defaultLimit = 30
	// Max number of items per page
	maxLimit = 100
)

// ListArtwork contains metadata and download information about an artwork
type ListArtwork struct {
	database.Artwork
	DownloadURL string `json:"download_url"`
}

func (a *API) getListArtwork(artwork database.Artwork) ListArtwork {
	return ListArtwork{
		Artwork:     artwork,
		DownloadURL: fmt.Sprintf("%s/v1/artwork/%d/image", a.RootURL, artwork.ID),
	}
}

func (a *API) writeArtwork(w http.ResponseWriter, r *http.Request, artwork *database.Artwork) *handler.Error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if err := json.NewEncoder(w).Encode(a.getListArtwork(*artwork)); err != nil {
		a.logError(r, "error encoding artwork", err)
		return handler.InternalServerError()
	}

	return nil
}

// Returns the currently displayed artwork
func (a *API) currentArtworkHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	var artwork *database.Artwork
	var err error

	if componentName := r.URL.Query().Get("provider"); componentName != "" {
		artwork, err = a.Database.GetCurrentArtworkForProvider(r.Context(), componentName)
	} else {
		artwork, err = a.Database.GetCurrentArtwork(r.Context())
	}

	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return handler.NotFound("no artwork loaded")
		}

		a.logError(r, "error getting current artwork from database", err)
		return handler.InternalServerError()
	}

	return a.writeArtwork(w, r, artwork)
}

// Returns info about an artwork
func (a *API) artworkHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	artwork, handlerErr := a.getArtwork(r)
	if handlerErr != nil {
		return handlerErr
	}

	return a.writeArtwork(w, r, artwork)
}

func (a *API) getArtwork(r *http.Request) (*database.Artwork, *handler.Error) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		return nil, handler.BadRequest("invalid artwork id")
	}

	artwork, err := a.Database.GetArtwork(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, handler.NotFound("artwork does not exist")
		}

		a.logError(r, "error getting artwork from database", err)
		return nil, handler.InternalServerError()
	}

	return artwork, nil
}

// Serves the artwork bytes, from storage when stashed, from the provider otherwise
func (a *API) imageHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	artwork, handlerErr := a.getArtwork(r)
	if handlerErr != nil {
		return handlerErr
	}

	if a.Storage != nil {
		data, err := a.Storage.Get(r.Context(), strconv.FormatInt(artwork.ID, 10))
		if err == nil {
			w.Header().Set("Content-Type", http.DetectContentType(data))
			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Write(data)
			return nil
		}

		if !errors.Is(err, storage.ErrNotFound) {
			a.logError(r, "error getting artwork from storage", err)
			return handler.InternalServerError()
		}
	}

	client := a.Clients.ClientFor(artwork.SourceComponentName)
	body, err := client.OpenArtwork(r.Context(), provider.ArtworkRecord{PersistentURI: artwork.ImageURI})
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			return handler.NotFound("artwork image is gone")
		}

		a.logError(r, "error opening artwork from provider", err)
		return handler.ServiceUnavailable("provider unreachable")
	}
	defer body.Close()

	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, body); err != nil {
		a.logError(r, "error writing artwork image", err)
	}

	return nil
}

// Paginated artwork history, with `page` and `limit` query parameters
func (a *API) listHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	limit := getLimit(r)
	page := getPage(r)

	offset := limit * (page - 1)

	databaseList, err := a.Database.List(r.Context(), offset, limit)
	if err != nil {
		a.logError(r, "error getting artwork list from database", err)
		return handler.InternalServerError()
	}

	list := []ListArtwork{}

	for _, artwork := range databaseList {
		list = append(list, a.getListArtwork(artwork))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	// If we've ran out of items, don't include the next page in the Link header
	end := len(list) < limit
	w.Header().Set("Link", a.getLinkHeader(page, limit, end))

	if err := json.NewEncoder(w).Encode(list); err != nil {
		a.logError(r, "error encoding artwork list", err)
		return handler.InternalServerError()
	}

	return nil
}

func getLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return limit
}

func getPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	return page
}

func (a *API) getLinkHeader(page, limit int, end bool) string {
	// This will return a next even if there's only enough items for a single page, but lets ignore that for now
	if page == 1 {
		return fmt.Sprintf("<%s/v1/list?page=%d&limit=%d>; rel=\"next\"", a.RootURL, page+1, limit)
	}

	if end {
		return fmt.Sprintf("<%s/v1/list?page=%d&limit=%d>; rel=\"prev\"", a.RootURL, page-1, limit)
	}

	return fmt.Sprintf("<%s/v1/list?page=%d&limit=%d>; rel=\"prev\", <%s/v1/list?page=%d&limit=%d>; rel=\"next\"", a.RootURL, page-1, limit, a.RootURL, page+1, limit)
}
