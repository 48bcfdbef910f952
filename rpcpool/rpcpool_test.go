package rpcpool

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shenjiangwei/poolkit/pool"
)

// newTestServer builds a Server over a fresh in-process RegionPool and
// serves it on a loopback listener chosen by the OS, returning the
// listener's address and a teardown func.
func newTestServer(t *testing.T) (addr string, stop func()) {
	t.Helper()

	region := pool.NewRegionPool(pool.NewHeapBacking(), pool.WithMinBytes(4096))
	srv, err := NewServer(region)
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.listener = listener

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go srv.rpcServer.ServeConn(conn)
		}
	}()

	return listener.Addr().String(), func() { _ = srv.Close() }
}

func TestClientServerAllocateFreeRoundTrip(t *testing.T) {
	addr, stop := newTestServer(t)
	defer stop()

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	start, err := client.Allocate(1024)
	require.NoError(t, err)
	assert.NotZero(t, start)

	stats, err := client.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), stats.AllocatedBytes)
	assert.Equal(t, 1, stats.UsedBlocks)

	require.NoError(t, client.Free(start))

	stats, err = client.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.AllocatedBytes)
	assert.Equal(t, 0, stats.UsedBlocks)
}

func TestClientFreeUnknownAddressReturnsServerError(t *testing.T) {
	addr, stop := newTestServer(t)
	defer stop()

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	err = client.Free(0xdeadbeef)
	assert.Error(t, err)
}

func TestConcurrentClientsSerializeThroughServerMutex(t *testing.T) {
	addr, stop := newTestServer(t)
	defer stop()

	const numClients = 5
	errs := make(chan error, numClients)

	for i := 0; i < numClients; i++ {
		go func(id int) {
			client, err := Dial(addr)
			if err != nil {
				errs <- fmt.Errorf("client %d dial: %w", id, err)
				return
			}
			defer client.Close()

			start, err := client.Allocate(256)
			if err != nil {
				errs <- fmt.Errorf("client %d allocate: %w", id, err)
				return
			}
			errs <- client.Free(start)
		}(i)
	}

	for i := 0; i < numClients; i++ {
		assert.NoError(t, <-errs)
	}
}
