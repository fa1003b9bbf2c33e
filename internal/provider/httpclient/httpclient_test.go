package httpclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/SergeyBurlaka/muzei/internal/hmac"
	"github.com/SergeyBurlaka/muzei/internal/provider"
	"github.com/SergeyBurlaka/muzei/internal/provider/httpclient"
)

func testServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/artwork", func(w http.ResponseWriter, r *http.Request) {
		records := []provider.ArtworkRecord{
			{ID: 1, Token: "a", Title: "First"},
			{ID: 2, Token: "b", Title: "Second"},
		}

		if r.URL.Query().Get("min_id") == "1" {
			records = records[1:]
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Artwork []provider.ArtworkRecord `json:"artwork"`
		}{records})
	})

	mux.HandleFunc("/artwork/1/open", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	})

	mux.HandleFunc("/artwork/2/open", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	mux.HandleFunc("/call", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Method string `json:"method"`
			Arg    string `json:"arg"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch body.Method {
		case provider.MethodGetDescription:
			json.NewEncoder(w).Encode(map[string]string{"description": "Featured art"})
		case provider.MethodGetLoadInfo:
			w.Write([]byte("this is not json"))
		default:
			w.Write([]byte("{}"))
		}
	})

	return httptest.NewServer(mux)
}

func TestListArtwork(t *testing.T) {
	server := testServer(t)
	defer server.Close()

	client := httpclient.NewFactory(server.Client(), nil).ClientFor(server.URL)

	records, err := client.ListArtwork(context.Background(), provider.Filter{})
	if err != nil {
		t.Fatal(err)
	}

	expected := []provider.ArtworkRecord{
		{ID: 1, Token: "a", Title: "First"},
		{ID: 2, Token: "b", Title: "Second"},
	}
	if !reflect.DeepEqual(records, expected) {
		t.Errorf("expected %v, got %v", expected, records)
	}

	filtered, err := client.ListArtwork(context.Background(), provider.Filter{MinID: 1})
	if err != nil {
		t.Fatal(err)
	}

	if len(filtered) != 1 || filtered[0].ID != 2 {
		t.Errorf("unexpected filtered listing: %v", filtered)
	}
}

func TestOpenArtwork(t *testing.T) {
	server := testServer(t)
	defer server.Close()

	client := httpclient.NewFactory(server.Client(), nil).ClientFor(server.URL)

	body, err := client.OpenArtwork(context.Background(), provider.ArtworkRecord{
		ID:            1,
		PersistentURI: server.URL + "/artwork/1/open",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("unexpected bytes: %q", data)
	}

	// Listed but not retrievable
	_, err = client.OpenArtwork(context.Background(), provider.ArtworkRecord{
		ID:            2,
		PersistentURI: server.URL + "/artwork/2/open",
	})
	if !errors.Is(err, provider.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// A record without a locator falls back to the open endpoint
	body, err = client.OpenArtwork(context.Background(), provider.ArtworkRecord{ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	body.Close()
}

func TestCall(t *testing.T) {
	server := testServer(t)
	defer server.Close()

	client := httpclient.NewFactory(server.Client(), nil).ClientFor(server.URL)

	description, err := client.Description(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if description != "Featured art" {
		t.Errorf("unexpected description: %q", description)
	}

	// Malformed far-side responses surface as remote failures, never a panic
	_, err = client.LoadInfo(context.Background())
	if !provider.IsRemote(err) {
		t.Errorf("expected a remote error, got %v", err)
	}

	if err := client.RequestLoad(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestUnreachableProvider(t *testing.T) {
	server := testServer(t)
	server.Close()

	client := httpclient.NewFactory(nil, nil).ClientFor(server.URL)

	_, err := client.ListArtwork(context.Background(), provider.Filter{})
	if !provider.IsRemote(err) {
		t.Errorf("expected a remote error, got %v", err)
	}
}

func TestRequestSigning(t *testing.T) {
	h := &hmac.HMAC{Key: []byte("test")}

	var signature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get(httpclient.SignatureHeader)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"artwork":[]}`))
	}))
	defer server.Close()

	client := httpclient.NewFactory(server.Client(), h).ClientFor(server.URL)
	if _, err := client.ListArtwork(context.Background(), provider.Filter{}); err != nil {
		t.Fatal(err)
	}

	matches, err := h.Validate("/artwork", signature)
	if err != nil {
		t.Fatal(err)
	}
	if !matches {
		t.Error("expected a valid request signature")
	}
}
