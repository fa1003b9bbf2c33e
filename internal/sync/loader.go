package sync

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strconv"
	"time"

	"github.com/SergeyBurlaka/muzei/internal/database"
	"github.com/SergeyBurlaka/muzei/internal/logger"
	"github.com/SergeyBurlaka/muzei/internal/metrics"
	"github.com/SergeyBurlaka/muzei/internal/notify"
	"github.com/SergeyBurlaka/muzei/internal/provider"
	"github.com/SergeyBurlaka/muzei/internal/storage"
	"github.com/SergeyBurlaka/muzei/internal/tracing"
)

// Terminal loader outcomes
var (
	ErrNoProviderSelected   = errors.New("no provider selected")
	ErrNoArtworkAvailable   = errors.New("no artwork available")
	ErrNoAlternativeArtwork = errors.New("no alternative artwork to rotate to")
)

// Retryable reports whether a failed load may succeed if tried again later.
// Remote failures and an empty listing can resolve themselves once the
// provider recovers or finishes its first load, the rest can not.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNoProviderSelected), errors.Is(err, ErrNoAlternativeArtwork):
		return false
	case errors.Is(err, ErrNoArtworkAvailable):
		return true
	case provider.IsRemote(err):
		return true
	default:
		return false
	}
}

// How many random draws to attempt per candidate before falling back to an
// exhaustive scan. The original rotation loop had no bound and could spin
// forever when every non-recent candidate failed validation.
const randomDrawsPerCandidate = 4

// Loader picks the next artwork to display and commits it
type Loader struct {
	Store    database.Store
	Clients  provider.Factory
	Storage  storage.Provider
	Notifier notify.Notifier
	Log      *logger.Logger
	Tracer   *tracing.Tracer
	Random   *rand.Rand
}

// LoadArtwork runs one load: it selects the next artwork from the current
// provider, validates that its bytes are retrievable, and commits it together
// with the provider's updated rotation state.
func (l *Loader) LoadArtwork(ctx context.Context) (*database.Artwork, error) {
	return l.load(ctx, l.random())
}

// LoadArtworkWithSeed runs one load with a deterministic rotation draw
func (l *Loader) LoadArtworkWithSeed(ctx context.Context, seed int64) (*database.Artwork, error) {
	return l.load(ctx, rand.New(rand.NewSource(seed)))
}

func (l *Loader) random() *rand.Rand {
	if l.Random != nil {
		return l.Random
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func (l *Loader) load(ctx context.Context, random *rand.Rand) (*database.Artwork, error) {
	ctx, span := l.Tracer.Start(ctx, "loader.LoadArtwork")
	defer span.End()

	prov, err := l.Store.GetProvider(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNoProvider) {
			return nil, ErrNoProviderSelected
		}
		return nil, err
	}

	client := l.Clients.ClientFor(prov.ComponentName)

	// Candidates the provider added since we last looked, in provider order
	newRecords, err := client.ListArtwork(ctx, provider.Filter{MinID: prov.MaxLoadedArtworkID})
	if err != nil {
		metrics.LoadFailures.WithLabelValues("remote").Inc()
		return nil, err
	}

	allRecords, err := client.ListArtwork(ctx, provider.Filter{})
	if err != nil {
		metrics.LoadFailures.WithLabelValues("remote").Inc()
		return nil, err
	}

	// New candidates take priority over random rotation
	for i, record := range newRecords {
		data, ok := l.validate(ctx, client, record)
		if !ok {
			continue
		}

		artwork, err := l.commit(ctx, client, prov, record, len(allRecords), data)
		if err != nil {
			return nil, err
		}

		// Exhausted the new candidates, hint the provider to produce more
		if i == len(newRecords)-1 {
			l.requestLoad(ctx, client)
		}

		metrics.LoadedArtwork.WithLabelValues("new").Inc()
		return artwork, nil
	}

	// No valid new candidates, keep the provider producing either way
	l.requestLoad(ctx, client)

	if len(allRecords) == 0 {
		metrics.LoadFailures.WithLabelValues("no_artwork").Inc()
		return nil, ErrNoArtworkAvailable
	}

	current, err := l.Store.GetCurrentArtworkForProvider(ctx, prov.ComponentName)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	if len(allRecords) == 1 && current != nil && l.locator(prov.ComponentName, allRecords[0]) == current.ImageURI {
		metrics.LoadFailures.WithLabelValues("no_alternative").Inc()
		return nil, ErrNoAlternativeArtwork
	}

	// Keep the recency window from excluding everything when the provider's
	// catalog has shrunk
	prov.RecentArtworkIDs = prov.RecentArtworkIDs.Trim(len(allRecords) / 2)

	// Random rotation avoiding recently shown artwork
	for attempts := 0; attempts < randomDrawsPerCandidate*len(allRecords); attempts++ {
		record := allRecords[random.Intn(len(allRecords))]
		if prov.RecentArtworkIDs.Contains(record.ID) {
			continue
		}

		data, ok := l.validate(ctx, client, record)
		if !ok {
			continue
		}

		artwork, err := l.commit(ctx, client, prov, record, len(allRecords), data)
		if err != nil {
			return nil, err
		}

		metrics.LoadedArtwork.WithLabelValues("rotation").Inc()
		return artwork, nil
	}

	// Random draws came up empty, scan every non-recent candidate once
	for _, record := range allRecords {
		if prov.RecentArtworkIDs.Contains(record.ID) {
			continue
		}

		data, ok := l.validate(ctx, client, record)
		if !ok {
			continue
		}

		artwork, err := l.commit(ctx, client, prov, record, len(allRecords), data)
		if err != nil {
			return nil, err
		}

		metrics.LoadedArtwork.WithLabelValues("rotation").Inc()
		return artwork, nil
	}

	metrics.LoadFailures.WithLabelValues("no_artwork").Inc()
	return nil, ErrNoArtworkAvailable
}

// validate confirms a candidate's bytes are actually retrievable. A failure
// only disqualifies this candidate, never the whole run.
func (l *Loader) validate(ctx context.Context, client provider.Client, record provider.ArtworkRecord) ([]byte, bool) {
	body, err := client.OpenArtwork(ctx, record)
	if err != nil {
		l.Log.Debugw("unable to open artwork",
			"provider", client.ComponentName(),
			"artwork", record.ID,
			"error", err,
		)
		metrics.ValidationFailures.Inc()
		return nil, false
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		l.Log.Debugw("unable to read artwork",
			"provider", client.ComponentName(),
			"artwork", record.ID,
			"error", err,
		)
		metrics.ValidationFailures.Inc()
		return nil, false
	}

	return data, true
}

// commit writes the winning candidate into the artwork log and persists the
// provider's advanced rotation state in one transaction
func (l *Loader) commit(ctx context.Context, client provider.Client, prov *database.Provider, record provider.ArtworkRecord, total int, data []byte) (*database.Artwork, error) {
	artwork := &database.Artwork{
		SourceComponentName: prov.ComponentName,
		ImageURI:            l.locator(prov.ComponentName, record),
		Title:               record.Title,
		Byline:              record.Byline,
		Attribution:         record.Attribution,
		Token:               record.Token,
		MetaFont:            database.MetaFontDefault,
		DateAdded:           time.Now(),
	}

	if record.ID > prov.MaxLoadedArtworkID {
		prov.MaxLoadedArtworkID = record.ID
	}
	prov.RecentArtworkIDs = prov.RecentArtworkIDs.Append(record.ID).Trim(database.RecentBound(total))

	id, err := l.Store.CommitArtwork(ctx, artwork, prov)
	if err != nil {
		metrics.LoadFailures.WithLabelValues("store").Inc()
		return nil, err
	}

	// Stash the validated bytes so the artwork stays displayable even if the
	// provider goes away, best-effort
	if l.Storage != nil {
		if err := l.Storage.Put(ctx, strconv.FormatInt(id, 10), data); err != nil {
			l.Log.Warnw("unable to store artwork bytes",
				"artwork", id,
				"error", err,
			)
		}
	}

	// Let the provider advance its own bookkeeping, fire-and-forget
	if err := client.MarkLoaded(ctx, record.ID); err != nil {
		l.Log.Debugw("unable to mark artwork as loaded",
			"provider", client.ComponentName(),
			"artwork", record.ID,
			"error", err,
		)
	}

	if l.Notifier != nil {
		l.Notifier.Publish(notify.Event{
			Type:          notify.EventArtworkChanged,
			ComponentName: prov.ComponentName,
			ArtworkID:     id,
		})
	}

	return artwork, nil
}

func (l *Loader) requestLoad(ctx context.Context, client provider.Client) {
	if err := client.RequestLoad(ctx); err != nil {
		l.Log.Debugw("unable to request more artwork",
			"provider", client.ComponentName(),
			"error", err,
		)
	}
}

// locator returns the stable image uri for a provider record
func (l *Loader) locator(componentName string, record provider.ArtworkRecord) string {
	if record.PersistentURI != "" {
		return record.PersistentURI
	}
	return componentName + "/artwork/" + strconv.FormatInt(record.ID, 10) + "/open"
}
