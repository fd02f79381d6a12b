package accent

import (
	"context"
	"errors"
	"sync"
)

// Bundle is a loaded classifier with its label encoder. It is shared
// read-only by every analysis run.
type Bundle struct {
	Classifier Classifier
	Encoder    *Encoder
}

// Close releases the classifier.
func (b *Bundle) Close() error {
	if b == nil || b.Classifier == nil {
		return nil
	}
	return b.Classifier.Close()
}

// Loader produces a Bundle. It is called at most once per Cache.
type Loader func(ctx context.Context) (*Bundle, error)

// Cache loads a Bundle lazily on first use and returns the same Bundle, or
// the same error, on every later call.
type Cache struct {
	load Loader

	once   sync.Once
	bundle *Bundle
	err    error

	mu     sync.Mutex
	closed bool
}

// NewCache creates a Cache backed by load.
func NewCache(load Loader) *Cache {
	return &Cache{load: load}
}

// Get returns the cached Bundle, loading it on the first call. A failed
// load is a ModelUnavailable error and is not retried.
func (c *Cache) Get(ctx context.Context) (*Bundle, error) {
	c.once.Do(func() {
		// Cancellation of the first caller must not poison the cache.
		b, err := c.load(context.WithoutCancel(ctx))
		if err == nil && (b == nil || b.Classifier == nil || b.Encoder == nil) {
			err = errors.New("loader returned an incomplete bundle")
		}
		if err != nil {
			c.err = Wrap(ModelUnavailable, "load", err)
			return
		}
		c.bundle = b
	})

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, Errorf(ModelUnavailable, "load", "model cache closed")
	}
	return c.bundle, c.err
}

// Close releases the Bundle if it was loaded. Later Get calls fail.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	// Prevent a later first Get from loading.
	c.once.Do(func() {})
	return c.bundle.Close()
}
