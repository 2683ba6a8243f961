// Package statistics defines the statistics contract used by the store and
// a concurrency-safe in-memory implementation of it.
package statistics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Statistic names updated by the store.
const (
	// StoreClientCreation is the duration of creating a client or transfer manager.
	StoreClientCreation = "store_client_creation"

	// ObjectDeleteRequest counts delete requests, single and bulk.
	ObjectDeleteRequest = "object_delete_request"

	// ObjectBulkDeleteRequest counts bulk delete requests.
	ObjectBulkDeleteRequest = "object_bulk_delete_request"

	// ObjectDeleteObjects counts objects the store confirmed deleted.
	ObjectDeleteObjects = "object_delete_objects"

	// StoreIOThrottled counts throttled operations, scaled by key count.
	StoreIOThrottled = "store_io_throttled"

	// StoreIORetry counts retried attempts.
	StoreIORetry = "store_io_retry"

	// StoreIORateLimited is the time spent waiting on the rate limiters.
	StoreIORateLimited = "store_io_rate_limited"

	// FailureSuffix is appended to a duration name when the tracked operation failed.
	FailureSuffix = ".failures"
)

// Sink receives statistic updates. Implementations must be safe for
// concurrent use.
type Sink interface {
	// IncrementCounter adds value to the named counter.
	IncrementCounter(name string, value int64)

	// RecordDuration records one timed operation under name.
	RecordDuration(name string, d time.Duration)
}

// TrackDuration runs fn and records its duration under name, or under
// name+FailureSuffix when fn fails.
func TrackDuration[T any](sink Sink, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	if err != nil {
		sink.RecordDuration(name+FailureSuffix, time.Since(start))
		return v, err
	}
	sink.RecordDuration(name, time.Since(start))
	return v, nil
}

// DurationStats summarises the durations recorded under one name.
type DurationStats struct {
	Count int64
	Total time.Duration
	Max   time.Duration
}

type durationEntry struct {
	count atomic.Int64
	total atomic.Int64
	max   atomic.Int64
}

// Counters is an in-memory Sink backed by atomics.
type Counters struct {
	mu        sync.RWMutex
	counters  map[string]*atomic.Int64
	durations map[string]*durationEntry
}

// NewCounters creates an empty Counters.
func NewCounters() *Counters {
	return &Counters{
		counters:  make(map[string]*atomic.Int64),
		durations: make(map[string]*durationEntry),
	}
}

// IncrementCounter adds value to the named counter.
func (c *Counters) IncrementCounter(name string, value int64) {
	c.counter(name).Add(value)
}

// RecordDuration records one timed operation under name.
func (c *Counters) RecordDuration(name string, d time.Duration) {
	e := c.duration(name)
	e.count.Add(1)
	e.total.Add(int64(d))
	for {
		cur := e.max.Load()
		if int64(d) <= cur || e.max.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}

// Counter returns the current value of the named counter.
func (c *Counters) Counter(name string) int64 {
	c.mu.RLock()
	v, ok := c.counters[name]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return v.Load()
}

// Duration returns the summary of durations recorded under name.
func (c *Counters) Duration(name string) DurationStats {
	c.mu.RLock()
	e, ok := c.durations[name]
	c.mu.RUnlock()
	if !ok {
		return DurationStats{}
	}
	return DurationStats{
		Count: e.count.Load(),
		Total: time.Duration(e.total.Load()),
		Max:   time.Duration(e.max.Load()),
	}
}

// Names returns the sorted names of all counters and durations seen so far.
func (c *Counters) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.counters)+len(c.durations))
	for name := range c.counters {
		names = append(names, name)
	}
	for name := range c.durations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Counters) counter(name string) *atomic.Int64 {
	c.mu.RLock()
	v, ok := c.counters[name]
	c.mu.RUnlock()
	if ok {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok = c.counters[name]; !ok {
		v = new(atomic.Int64)
		c.counters[name] = v
	}
	return v
}

func (c *Counters) duration(name string) *durationEntry {
	c.mu.RLock()
	e, ok := c.durations[name]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.durations[name]; !ok {
		e = new(durationEntry)
		c.durations[name] = e
	}
	return e
}

// Discard is a Sink that drops every update.
var Discard Sink = discard{}

type discard struct{}

func (discard) IncrementCounter(string, int64)         {}
func (discard) RecordDuration(string, time.Duration) {}
