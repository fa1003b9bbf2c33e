package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Protocol methods understood by a provider's call endpoint
const (
	MethodGetLoadInfo     = "get_load_info"
	MethodRequestLoad     = "request_load"
	MethodMarkLoaded      = "mark_loaded"
	MethodGetDescription  = "get_description"
	MethodGetCommands     = "get_commands"
	MethodTriggerCommand  = "trigger_command"
	MethodOpenArtworkInfo = "open_artwork_info"
)

// ArtworkRecord is one artwork listing entry as reported by a provider.
// ID is assigned by the provider and only meaningful within it.
type ArtworkRecord struct {
	ID            int64  `json:"id"`
	Token         string `json:"token"`
	Title         string `json:"title"`
	Byline        string `json:"byline"`
	Attribution   string `json:"attribution"`
	PersistentURI string `json:"persistent_uri"`
	WebURI        string `json:"web_uri"`
}

// LoadInfo is the provider's own loading bookkeeping
type LoadInfo struct {
	MaxLoadedArtworkID int64     `json:"max_loaded_artwork_id"`
	LastLoadedAt       time.Time `json:"last_loaded_time"`
}

// Command is a user-triggerable provider action
type Command struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Filter restricts an artwork listing
type Filter struct {
	// MinID only returns records with an id strictly greater than this value
	MinID int64
	// Descending lists newest records first
	Descending bool
}

// Client is an interface for talking to a single external art provider.
// Every method can fail with a *RemoteError at any time: the provider runs
// out of process and may crash, disappear, or return garbage mid-call.
type Client interface {
	// ComponentName returns the identifier of the provider this client talks to
	ComponentName() string

	// ListArtwork returns the provider's artwork listing
	ListArtwork(ctx context.Context, filter Filter) ([]ArtworkRecord, error)

	// OpenArtwork opens the image bytes for a record. ErrNotFound means the
	// record is listed but its bytes are not retrievable.
	OpenArtwork(ctx context.Context, record ArtworkRecord) (io.ReadCloser, error)

	// LoadInfo returns the provider's loading bookkeeping
	LoadInfo(ctx context.Context) (*LoadInfo, error)

	// RequestLoad asks the provider to produce more artwork, fire-and-forget
	RequestLoad(ctx context.Context) error

	// MarkLoaded acknowledges that a record was committed, fire-and-forget
	MarkLoaded(ctx context.Context, id int64) error

	// Description returns the provider's current description
	Description(ctx context.Context) (string, error)

	// Commands returns the user commands available for an artwork
	Commands(ctx context.Context, artworkID int64) ([]Command, error)

	// TriggerCommand invokes a user command for an artwork
	TriggerCommand(ctx context.Context, artworkID int64, commandID int) error

	// OpenArtworkInfo asks the provider to open the artwork's info page
	OpenArtworkInfo(ctx context.Context, artworkID int64) (bool, error)
}

// Factory resolves a provider component name to a client for it
type Factory interface {
	ClientFor(componentName string) Client
}

// RemoteError indicates that a provider was unreachable or misbehaved during a call
type RemoteError struct {
	ComponentName string
	Method        string
	Err           error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("provider %s failed during %s: %s", e.ComponentName, e.Method, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err is a provider-side failure
func IsRemote(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}

// Errors
var (
	ErrNotFound = errors.New("Artwork bytes are not retrievable")
)
