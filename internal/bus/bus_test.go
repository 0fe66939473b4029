package bus_test

import (
	"testing"
	"time"

	"github.com/joeblew999/mesh3dtiler/internal/bus"
	"github.com/joeblew999/mesh3dtiler/internal/tile"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := bus.New()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(bus.Event{Kind: bus.TileWritten, Tile: tile.Tile{Zoom: 1}})

	select {
	case e := <-ch:
		if e.Kind != bus.TileWritten {
			t.Fatalf("Kind = %v, want TileWritten", e.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := bus.New()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(bus.Event{Kind: bus.TileSkippedEmpty})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}
}
