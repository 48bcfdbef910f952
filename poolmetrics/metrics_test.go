package poolmetrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shenjiangwei/poolkit/pool"
)

func TestHandlerServesCounters(t *testing.T) {
	r := pool.NewRegionPool(pool.NewHeapBacking(), pool.WithMinBytes(4096))
	_, err := r.Allocate(100)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(r).ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "poolkit_allocated_bytes 100")
	assert.Contains(t, rec.Body.String(), "poolkit_used_blocks 1")
}
