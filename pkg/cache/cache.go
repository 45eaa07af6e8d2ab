// Package cache memoizes sequence engines by pattern text and options
package cache

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/sequence"
)

const (
	DefaultCapacity = 128
	DefaultTTL      = 10 * time.Minute
)

type key struct {
	text string
	opts sequence.Options
}

func (k key) String() string {
	return fmt.Sprintf("%q|%+v", k.text, k.opts)
}

type entry struct {
	key        key
	engine     *sequence.Engine
	lastAccess time.Time

	// serializes Next on the shared engine
	mu sync.Mutex
}

// Cache is a bounded LRU of engines with idle expiry. Engines handed out
// are shared: callers that mutate one should Clone it first.
type Cache struct {
	capacity   int
	ttl        time.Duration
	now        func() time.Time
	engineOpts []sequence.Option
	logger     *slog.Logger

	mu    sync.Mutex
	items map[key]*list.Element
	order *list.List // front is most recently used
	group singleflight.Group
}

// Option configures a Cache
type Option func(*Cache)

// WithCapacity bounds the number of engines kept
func WithCapacity(n int) Option {
	return func(c *Cache) {
		c.capacity = n
	}
}

// WithTTL sets how long an entry may sit unused. Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		c.ttl = d
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithEngineOptions passes options to every engine the cache builds
func WithEngineOptions(opts ...sequence.Option) Option {
	return func(c *Cache) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New creates an empty cache
func New(opts ...Option) *Cache {
	c := &Cache{
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   slog.Default(),
		items:    make(map[key]*list.Element),
		order:    list.New(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.capacity < 1 {
		c.capacity = 1
	}
	return c
}

// GetOrCompute returns the engine for text and opts, building it on a miss.
// Concurrent misses on the same key build it once.
func (c *Cache) GetOrCompute(text string, opts sequence.Options) *sequence.Engine {
	return c.entry(text, opts).engine
}

// Pattern is GetOrCompute
func (c *Cache) Pattern(text string, opts sequence.Options) *sequence.Engine {
	return c.GetOrCompute(text, opts)
}

func (c *Cache) entry(text string, opts sequence.Options) *entry {
	k := key{text: text, opts: opts}
	if en := c.lookup(k); en != nil {
		return en
	}
	v, _, _ := c.group.Do(k.String(), func() (any, error) {
		if en := c.lookup(k); en != nil {
			return en, nil
		}
		en := &entry{key: k, engine: sequence.New(text, opts, c.engineOpts...)}
		c.store(en)
		return en, nil
	})
	return v.(*entry)
}

// lookup returns a live entry and marks it used
func (c *Cache) lookup(k key) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[k]
	if !ok {
		return nil
	}
	en := el.Value.(*entry)
	now := c.now()
	if c.expired(en, now) {
		c.remove(el)
		return nil
	}
	en.lastAccess = now
	c.order.MoveToFront(el)
	return en
}

func (c *Cache) store(en *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	en.lastAccess = now
	c.items[en.key] = c.order.PushFront(en)
	c.logger.Debug("pattern cached", "pattern", en.key.text, "id", en.engine.ID())
	c.purge(now)
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.logger.Debug("pattern evicted", "pattern", oldest.Value.(*entry).key.text)
		c.remove(oldest)
	}
}

func (c *Cache) expired(en *entry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(en.lastAccess) > c.ttl
}

func (c *Cache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

func (c *Cache) purge(now time.Time) int {
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*entry), now) {
			c.remove(el)
			n++
		}
		el = prev
	}
	return n
}

// Purge drops expired entries and returns how many were dropped
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.purge(c.now())
	if n > 0 {
		c.logger.Debug("expired patterns purged", "count", n)
	}
	return n
}

// Invalidate drops one entry and reports whether it was present
func (c *Cache) Invalidate(text string, opts sequence.Options) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key{text: text, opts: opts}]
	if ok {
		c.remove(el)
	}
	return ok
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[key]*list.Element)
	c.order.Init()
}

// Len returns the number of cached engines
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Get advances the cached engine for text and opts and returns its event
func (c *Cache) Get(text string, opts sequence.Options) (event.Event, bool) {
	en := c.entry(text, opts)
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.engine.Next()
}

// Note is Get returning MIDI notes
func (c *Cache) Note(text string, opts sequence.Options) ([]int, bool) {
	ev, ok := c.Get(text, opts)
	if !ok {
		return nil, false
	}
	return ints(ev.Collect(event.FieldNote)), true
}

// Pitch is Get returning scale degrees
func (c *Cache) Pitch(text string, opts sequence.Options) ([]int, bool) {
	ev, ok := c.Get(text, opts)
	if !ok {
		return nil, false
	}
	return ints(ev.Collect(event.FieldPitch)), true
}

// Freq is Get returning frequencies in Hz
func (c *Cache) Freq(text string, opts sequence.Options) ([]float64, bool) {
	ev, ok := c.Get(text, opts)
	if !ok {
		return nil, false
	}
	return ev.Collect(event.FieldFreq), true
}

func ints(vals []float64) []int {
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(v)
	}
	return out
}
