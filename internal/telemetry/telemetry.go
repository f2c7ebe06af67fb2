// Package telemetry holds the shared recorder cache and the single goroutine that fills it.
package telemetry

import (
	"maps"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/fridgebench/internal/recorder"
)

var emptySnapshot = &Snapshot{Readings: recorder.Readings{}}

// Cache publishes recorder readings to any number of readers. There is one writer, the Poller;
// readers never block and always see a complete snapshot.
type Cache struct {
	current   atomic.Pointer[Snapshot]
	connected atomic.Bool
}

func NewCache() *Cache {
	c := &Cache{}
	c.current.Store(emptySnapshot)
	return c
}

// Snapshot returns the latest published readings. Callers must not modify it.
func (c *Cache) Snapshot() *Snapshot {
	return c.current.Load()
}

// Connected reports whether the most recent poll succeeded.
func (c *Cache) Connected() bool {
	return c.connected.Load()
}

// publish replaces the snapshot with a private copy of readings.
func (c *Cache) publish(readings recorder.Readings, at time.Time) {
	c.current.Store(&Snapshot{
		Readings:  maps.Clone(readings),
		UpdatedAt: at,
	})
	c.connected.Store(true)
}

func (c *Cache) markDisconnected() {
	c.connected.Store(false)
}
