package notify_test

import (
	"testing"
	"time"

	"github.com/SergeyBurlaka/muzei/internal/notify"
)

func TestPublishSubscribe(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()

	events, cancel := bus.Subscribe(notify.EventArtworkChanged)
	defer cancel()

	all, cancelAll := bus.Subscribe()
	defer cancelAll()

	bus.Publish(notify.Event{Type: notify.EventProviderChanged, ComponentName: "com.example.featured"})
	bus.Publish(notify.Event{Type: notify.EventArtworkChanged, ArtworkID: 42})

	select {
	case event := <-events:
		if event.Type != notify.EventArtworkChanged || event.ArtworkID != 42 {
			t.Errorf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered event")
	}

	select {
	case event := <-events:
		t.Errorf("unexpected second event on filtered subscription: %+v", event)
	default:
	}

	for i := 0; i < 2; i++ {
		select {
		case <-all:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for unfiltered events")
		}
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()

	// A subscriber that never reads
	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(notify.Event{Type: notify.EventArtworkChanged, ArtworkID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestPublishCountsDroppedEvents(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()

	// A subscriber that never reads fills its buffer, further events are
	// dropped and counted
	_, cancel := bus.Subscribe(notify.EventArtworkChanged)
	defer cancel()

	for i := 0; i < 20; i++ {
		bus.Publish(notify.Event{Type: notify.EventArtworkChanged, ArtworkID: int64(i)})
	}

	if dropped := bus.Dropped(); dropped != 4 {
		t.Errorf("expected 4 dropped events, got %d", dropped)
	}
}

func TestCancelUnsubscribes(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()

	events, cancel := bus.Subscribe()
	cancel()
	cancel() // canceling twice is fine

	if _, open := <-events; open {
		t.Error("expected the channel to be closed after cancel")
	}

	bus.Publish(notify.Event{Type: notify.EventArtworkChanged})
}
