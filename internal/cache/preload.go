package cache

import (
	"context"
	"fmt"
	"log"
)

// BytesProvider produces the raw contents of a book, typically by
// reading the stored file. It should honor ctx cancellation.
type BytesProvider func(ctx context.Context) ([]byte, error)

// PreloadStatus classifies the outcome of a Preload call
type PreloadStatus string

const (
	// PreloadStored means the provider succeeded and the buffer was cached
	PreloadStored PreloadStatus = "stored"

	// PreloadAlreadyCached means the key was already present and the
	// provider was never invoked
	PreloadAlreadyCached PreloadStatus = "already_cached"

	// PreloadFailed means the provider returned an error or timed out;
	// the cache is unchanged
	PreloadFailed PreloadStatus = "failed"
)

// PreloadResult reports what a Preload call did. Err is set only for
// PreloadFailed and is informational; preload failures never propagate
// as errors.
type PreloadResult struct {
	Key    string        `json:"key"`
	Status PreloadStatus `json:"status"`
	Err    error         `json:"-"`
	Reason string        `json:"reason,omitempty"`
}

// Preload populates the cache for key ahead of an anticipated open.
// It is strictly best-effort: provider errors and timeouts are logged
// as warnings and reported in the result, never returned as errors.
// If key is already cached the provider is not invoked.
//
// The provider runs without the cache lock held, so two Preload calls
// racing on the same key may both fetch; the later Put wins.
func (c *Cache) Preload(ctx context.Context, key string, provider BytesProvider) PreloadResult {
	if c.Contains(key) {
		return PreloadResult{Key: key, Status: PreloadAlreadyCached}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.PreloadTimeout)
	defer cancel()

	type fetched struct {
		buf []byte
		err error
	}
	done := make(chan fetched, 1)
	go func() {
		buf, err := provider(ctx)
		done <- fetched{buf: buf, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			log.Printf("Warning: preload of %q failed: %v", key, res.err)
			return failedResult(key, res.err)
		}
		c.Put(key, res.buf)
		return PreloadResult{Key: key, Status: PreloadStored}

	case <-ctx.Done():
		// The provider may still complete; its result is discarded.
		err := fmt.Errorf("preload timed out after %s", c.opts.PreloadTimeout)
		log.Printf("Warning: preload of %q abandoned: %v", key, err)
		return failedResult(key, err)
	}
}

func failedResult(key string, err error) PreloadResult {
	return PreloadResult{
		Key:    key,
		Status: PreloadFailed,
		Err:    err,
		Reason: err.Error(),
	}
}
