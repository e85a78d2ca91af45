package cache

import (
	"time"

	"github.com/proxypal/proxypal/internal/proto"
)

const modelsKey = "models"

// Models caches the proxy's model listing so repeated CLI invocations don't
// hit the endpoint every time.
type Models struct {
	cache *Cache[[]proto.ModelInfo]
}

// NewModels creates a new model-listing cache under dir.
func NewModels(dir string) (*Models, error) {
	cache, err := New[[]proto.ModelInfo](dir)
	if err != nil {
		return nil, err
	}
	return &Models{cache: cache}, nil
}

// Read returns the cached model listing, or os.ErrNotExist when there is
// none or it has expired.
func (c *Models) Read(models *[]proto.ModelInfo) error {
	return c.cache.Read(modelsKey, models)
}

// Write caches the model listing for the given time to live.
func (c *Models) Write(models *[]proto.ModelInfo, ttl time.Duration) error {
	return c.cache.Write(modelsKey, ttl, models)
}

// Delete drops the cached listing.
func (c *Models) Delete() error {
	return c.cache.Delete(modelsKey)
}
