package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/SergeyBurlaka/muzei/internal/handler"
	"github.com/SergeyBurlaka/muzei/internal/provider"

	"github.com/gorilla/mux"
)

// Returns the user commands the provider offers for an artwork
func (a *API) commandsHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	artwork, handlerErr := a.getArtwork(r)
	if handlerErr != nil {
		return handlerErr
	}

	client := a.Clients.ClientFor(artwork.SourceComponentName)
	commands, err := client.Commands(r.Context(), artwork.ID)
	if err != nil {
		if provider.IsRemote(err) {
			// A provider that is away simply offers no commands
			commands = []provider.Command{}
		} else {
			a.logError(r, "error getting artwork commands", err)
			return handler.InternalServerError()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if err := json.NewEncoder(w).Encode(commands); err != nil {
		a.logError(r, "error encoding artwork commands", err)
		return handler.InternalServerError()
	}

	return nil
}

// Triggers a user command for an artwork
func (a *API) triggerCommandHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	artwork, handlerErr := a.getArtwork(r)
	if handlerErr != nil {
		return handlerErr
	}

	vars := mux.Vars(r)
	command, err := strconv.Atoi(vars["command"])
	if err != nil {
		return handler.BadRequest("invalid command id")
	}

	client := a.Clients.ClientFor(artwork.SourceComponentName)
	if err := client.TriggerCommand(r.Context(), artwork.ID, command); err != nil {
		if provider.IsRemote(err) {
			return handler.ServiceUnavailable("provider unreachable")
		}

		a.logError(r, "error triggering artwork command", err)
		return handler.InternalServerError()
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Asks the provider to open the artwork's info page
func (a *API) openArtworkInfoHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	artwork, handlerErr := a.getArtwork(r)
	if handlerErr != nil {
		return handlerErr
	}

	client := a.Clients.ClientFor(artwork.SourceComponentName)
	opened, err := client.OpenArtworkInfo(r.Context(), artwork.ID)
	if err != nil {
		if provider.IsRemote(err) {
			return handler.ServiceUnavailable("provider unreachable")
		}

		a.logError(r, "error opening artwork info", err)
		return handler.InternalServerError()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	var data = struct {
		Opened bool `json:"opened"`
	}{opened}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logError(r, "error encoding response", err)
		return handler.InternalServerError()
	}

	return nil
}
