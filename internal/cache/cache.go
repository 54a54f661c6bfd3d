package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
	"github.com/farxc/envelopa-rreo/internal/logger"
)

// Source names the tier a dataset was served from.
type Source string

const (
	SourceMemory     Source = "memory"
	SourcePersistent Source = "persistent"
	SourceUpstream   Source = "upstream"
)

// Persistent is the long-lived tier. Get reports ok=false for a missing
// scope or one older than maxAge. Put replaces the scope atomically.
type Persistent interface {
	Get(ctx context.Context, f fiscal.Filter, maxAge time.Duration) (*fiscal.Dataset, bool, error)
	Put(ctx context.Context, ds *fiscal.Dataset) error
	Delete(ctx context.Context, f fiscal.Filter) error
}

// Loader produces a fresh dataset when both tiers miss.
type Loader func(ctx context.Context, f fiscal.Filter) (*fiscal.Dataset, error)

// PersistenceError is a failed read or write against the persistent tier.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistent cache %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Result is a served dataset plus non-fatal persistence problems met on the
// way.
type Result struct {
	Dataset  *fiscal.Dataset
	Source   Source
	Warnings []error
}

type Options struct {
	TTL       time.Duration
	MemoryTTL time.Duration
}

// Cache looks a scope up in memory, then in the persistent tier, then calls
// the loader. Concurrent lookups of one scope share a single load.
type Cache struct {
	memory     *memoryTier
	persistent Persistent
	ttl        time.Duration
	load       Loader
	group      singleflight.Group
	logger     *logger.Logger
}

// New builds a Cache. persistent may be nil to run memory-only.
func New(persistent Persistent, load Loader, opts Options, log *logger.Logger) *Cache {
	return &Cache{
		memory:     newMemoryTier(opts.MemoryTTL),
		persistent: persistent,
		ttl:        opts.TTL,
		load:       load,
		logger:     log,
	}
}

func (c *Cache) Get(ctx context.Context, f fiscal.Filter) (*Result, error) {
	const component = "Cache"

	key := f.Fingerprint()
	if ds, ok := c.memory.get(key); ok {
		observeLookup(SourceMemory, "hit")
		return &Result{Dataset: ds, Source: SourceMemory}, nil
	}
	observeLookup(SourceMemory, "miss")

	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.fill(ctx, f, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug(component, "Shared in-flight load: scope=%s", f.Key())
	}
	res := *v.(*Result)
	return &res, nil
}

func (c *Cache) fill(ctx context.Context, f fiscal.Filter, key string) (*Result, error) {
	const component = "Cache"
	var warnings []error

	if c.persistent != nil {
		ds, ok, err := c.persistent.Get(ctx, f, c.ttl)
		switch {
		case err != nil:
			c.logger.Warn(component, "Persistent read failed: scope=%s err=%v", f.Key(), err)
			warnings = append(warnings, &PersistenceError{Op: "read", Err: err})
		case ok:
			observeLookup(SourcePersistent, "hit")
			c.memory.put(key, ds)
			return &Result{Dataset: ds, Source: SourcePersistent}, nil
		default:
			observeLookup(SourcePersistent, "miss")
		}
	}

	return c.loadAndStore(ctx, f, key, warnings)
}

// loadAndStore calls the loader and writes its dataset to both tiers. The
// tiers are untouched when the loader fails.
func (c *Cache) loadAndStore(ctx context.Context, f fiscal.Filter, key string, warnings []error) (*Result, error) {
	const component = "Cache"

	ds, err := c.load(ctx, f)
	if err != nil {
		return nil, err
	}

	if c.persistent != nil {
		if err := c.persistent.Put(ctx, ds); err != nil {
			c.logger.Error(component, "Persistent write failed: scope=%s err=%v", f.Key(), err)
			warnings = append(warnings, &PersistenceError{Op: "write", Err: err})
		}
	}
	c.memory.put(key, ds)

	c.logger.Info(component, "Loaded from upstream: scope=%s items=%d", f.Key(), len(ds.Items))
	return &Result{Dataset: ds, Source: SourceUpstream, Warnings: warnings}, nil
}

// Reload bypasses both tiers and loads the scope from upstream. Only a
// successful load replaces the cached copy, so a failing upstream leaves the
// previous dataset servable.
func (c *Cache) Reload(ctx context.Context, f fiscal.Filter) (*Result, error) {
	key := f.Fingerprint()
	v, err, _ := c.group.Do("reload:"+key, func() (any, error) {
		return c.loadAndStore(ctx, f, key, nil)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*Result)
	return &res, nil
}

// Invalidate drops a scope from both tiers.
func (c *Cache) Invalidate(ctx context.Context, f fiscal.Filter) error {
	c.memory.delete(f.Fingerprint())
	if c.persistent == nil {
		return nil
	}
	if err := c.persistent.Delete(ctx, f); err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}
	return nil
}

// IsPersistence reports whether err came from the persistent tier.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
