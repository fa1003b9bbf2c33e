// Package httpclient talks the provider protocol over JSON/HTTP. The provider's
// component name doubles as its base URL, which keeps component identifiers
// opaque everywhere else in the system.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/SergeyBurlaka/muzei/internal/hmac"
	"github.com/SergeyBurlaka/muzei/internal/provider"
)

const defaultTimeout = 30 * time.Second

// SignatureHeader carries the HMAC of the request path between services
const SignatureHeader = "Muzei-Signature"

// Factory creates clients for provider base URLs
type Factory struct {
	client *http.Client
	hmac   *hmac.HMAC
}

// NewFactory returns a new Factory instance. hmac may be nil to disable request signing.
func NewFactory(client *http.Client, hmac *hmac.HMAC) *Factory {
	if client == nil {
		client = &http.Client{
			Timeout: defaultTimeout,
		}
	}

	return &Factory{
		client: client,
		hmac:   hmac,
	}
}

// ClientFor returns a client for the given provider component name
func (f *Factory) ClientFor(componentName string) provider.Client {
	return &Client{
		componentName: componentName,
		client:        f.client,
		hmac:          f.hmac,
	}
}

// Client implements the provider protocol over HTTP
type Client struct {
	componentName string
	client        *http.Client
	hmac          *hmac.HMAC
}

// ComponentName returns the identifier of the provider this client talks to
func (c *Client) ComponentName() string {
	return c.componentName
}

// ListArtwork returns the provider's artwork listing
func (c *Client) ListArtwork(ctx context.Context, filter provider.Filter) ([]provider.ArtworkRecord, error) {
	query := url.Values{}
	if filter.MinID > 0 {
		query.Set("min_id", strconv.FormatInt(filter.MinID, 10))
	}
	if filter.Descending {
		query.Set("order", "desc")
	}

	listURL := c.componentName + "/artwork"
	if len(query) > 0 {
		listURL += "?" + query.Encode()
	}

	var listing struct {
		Artwork []provider.ArtworkRecord `json:"artwork"`
	}
	if err := c.getJSON(ctx, "list_artwork", listURL, &listing); err != nil {
		return nil, err
	}

	return listing.Artwork, nil
}

// OpenArtwork opens the image bytes for a record
func (c *Client) OpenArtwork(ctx context.Context, record provider.ArtworkRecord) (io.ReadCloser, error) {
	locator := record.PersistentURI
	if locator == "" {
		locator = fmt.Sprintf("%s/artwork/%d/open", c.componentName, record.ID)
	}

	req, err := c.newRequest(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, c.remoteError("open_artwork", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, c.remoteError("open_artwork", err)
	}

	switch {
	case res.StatusCode == http.StatusOK:
		return res.Body, nil
	case res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusGone:
		res.Body.Close()
		return nil, provider.ErrNotFound
	default:
		res.Body.Close()
		return nil, c.remoteError("open_artwork", fmt.Errorf("unexpected status %d", res.StatusCode))
	}
}

// LoadInfo returns the provider's loading bookkeeping
func (c *Client) LoadInfo(ctx context.Context) (*provider.LoadInfo, error) {
	info := &provider.LoadInfo{}
	if err := c.call(ctx, provider.MethodGetLoadInfo, "", nil, info); err != nil {
		return nil, err
	}

	return info, nil
}

// RequestLoad asks the provider to produce more artwork
func (c *Client) RequestLoad(ctx context.Context) error {
	return c.call(ctx, provider.MethodRequestLoad, "", nil, nil)
}

// MarkLoaded acknowledges that a record was committed
func (c *Client) MarkLoaded(ctx context.Context, id int64) error {
	return c.call(ctx, provider.MethodMarkLoaded, strconv.FormatInt(id, 10), nil, nil)
}

// Description returns the provider's current description
func (c *Client) Description(ctx context.Context) (string, error) {
	var result struct {
		Description string `json:"description"`
	}
	if err := c.call(ctx, provider.MethodGetDescription, "", nil, &result); err != nil {
		return "", err
	}

	return result.Description, nil
}

// Commands returns the user commands available for an artwork
func (c *Client) Commands(ctx context.Context, artworkID int64) ([]provider.Command, error) {
	var result struct {
		Commands []provider.Command `json:"commands"`
	}
	if err := c.call(ctx, provider.MethodGetCommands, strconv.FormatInt(artworkID, 10), nil, &result); err != nil {
		return nil, err
	}

	return result.Commands, nil
}

// TriggerCommand invokes a user command for an artwork
func (c *Client) TriggerCommand(ctx context.Context, artworkID int64, commandID int) error {
	return c.call(ctx, provider.MethodTriggerCommand, strconv.FormatInt(artworkID, 10), map[string]interface{}{
		"command": commandID,
	}, nil)
}

// OpenArtworkInfo asks the provider to open the artwork's info page
func (c *Client) OpenArtworkInfo(ctx context.Context, artworkID int64) (bool, error) {
	var result struct {
		Success bool `json:"success"`
	}
	if err := c.call(ctx, provider.MethodOpenArtworkInfo, strconv.FormatInt(artworkID, 10), nil, &result); err != nil {
		return false, err
	}

	return result.Success, nil
}

// call invokes a named method on the provider's call endpoint
func (c *Client) call(ctx context.Context, method, arg string, extras map[string]interface{}, result interface{}) error {
	payload, err := json.Marshal(struct {
		Method string                 `json:"method"`
		Arg    string                 `json:"arg,omitempty"`
		Extras map[string]interface{} `json:"extras,omitempty"`
	}{method, arg, extras})
	if err != nil {
		return c.remoteError(method, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.componentName+"/call", bytes.NewReader(payload))
	if err != nil {
		return c.remoteError(method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return c.remoteError(method, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return c.remoteError(method, fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(result); err != nil {
		return c.remoteError(method, err)
	}

	return nil
}

func (c *Client) getJSON(ctx context.Context, method, rawURL string, result interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return c.remoteError(method, err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return c.remoteError(method, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return c.remoteError(method, fmt.Errorf("unexpected status %d", res.StatusCode))
	}

	if err := json.NewDecoder(res.Body).Decode(result); err != nil {
		return c.remoteError(method, err)
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}

	if c.hmac != nil {
		signature, err := c.hmac.Create(req.URL.Path)
		if err != nil {
			return nil, err
		}
		req.Header.Set(SignatureHeader, signature)
	}

	return req, nil
}

func (c *Client) remoteError(method string, err error) error {
	return &provider.RemoteError{
		ComponentName: c.componentName,
		Method:        method,
		Err:           err,
	}
}
