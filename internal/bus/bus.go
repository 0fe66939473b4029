// Package bus provides a small fan-out pub/sub for tile-generation
// progress events, so a CLI progress bar or other observer can watch a
// run without coupling to the generator's call stack.
package bus

import (
	"sync"

	"github.com/joeblew999/mesh3dtiler/internal/tile"
)

// Kind classifies a tile-generation event.
type Kind int

const (
	TileCropped Kind = iota
	TileWritten
	TileSkippedEmpty
)

// Event reports progress on one tile during generation.
type Event struct {
	Kind  Kind
	Tile  tile.Tile
	Bytes int64
	Err   error
}

// Bus is a simple fan-out pub/sub for Events.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// New creates a new, empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Publish sends e to all current subscribers without blocking; a
// subscriber whose buffer is full misses the event rather than
// stalling the generator.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered channel that receives future events.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

// Default is the package-level bus used when a caller doesn't need an
// isolated instance (e.g. the CLI's single run).
var Default = New()
