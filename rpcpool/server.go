// Package rpcpool exposes a RegionPool over the wire via net/rpc: one
// request/response pair per pool method, one mutex around every pool
// call. That mutex is the one concurrency boundary in the whole
// repository — pool.RegionPool and pool.SlabPool are themselves
// unsynchronized, by design.
package rpcpool

import (
	"fmt"
	"net"
	"net/rpc"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/shenjiangwei/poolkit/pool"
)

// AllocRequest is an allocation request.
type AllocRequest struct {
	Size uint64
}

// AllocResponse carries either the allocated address or an error string
// (net/rpc requires errors to round-trip through a plain field rather
// than the Go error interface for application-level failures).
type AllocResponse struct {
	Addr  uint64
	Error string
}

// FreeRequest is a deallocation request.
type FreeRequest struct {
	Addr uint64
}

// FreeResponse reports a deallocation's outcome.
type FreeResponse struct {
	Error string
}

// StatsResponse mirrors RegionPool's four size/count accessors.
type StatsResponse struct {
	AllocatedBytes uint64
	TotalBytes     uint64
	FreeBlocks     int
	UsedBlocks     int
}

// Server fronts a pool.RegionPool over net/rpc. Every method that
// touches the pool (Allocate, Free, Stats, Close) takes the same mutex,
// so calls from concurrent connections are strictly serialized before
// they ever reach the pool.
type Server struct {
	region *pool.RegionPool
	mu     sync.Mutex

	rpcServer *rpc.Server
	listener  net.Listener
}

// NewServer wraps an existing RegionPool for RPC access. Each Server
// owns its own *rpc.Server rather than registering with net/rpc's
// package-level default server, so multiple Servers can coexist in one
// process (registering against the global default breaks the moment a
// second server is created).
func NewServer(region *pool.RegionPool) (*Server, error) {
	s := &Server{region: region, rpcServer: rpc.NewServer()}
	if err := s.rpcServer.RegisterName("Server", s); err != nil {
		return nil, fmt.Errorf("rpcpool: register: %w", err)
	}
	return s, nil
}

// Start listens on address and serves connections until Close is
// called. Each accepted connection gets its own net/rpc codec goroutine
// per the stdlib's usual pattern; Server.mu still serializes the
// underlying pool calls across all of them.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("rpcpool: listen: %w", err)
	}
	s.listener = listener

	logrus.WithField("subsystem", "rpcpool").Infof("listening on %s", address)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return nil
		}
		go s.rpcServer.ServeConn(conn)
	}
}

// Allocate is the RPC-callable method "Server.Allocate".
func (s *Server) Allocate(req *AllocRequest, resp *AllocResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr, err := s.region.Allocate(uintptr(req.Size))
	if err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.Addr = uint64(addr)
	return nil
}

// Free is the RPC-callable method "Server.Free".
func (s *Server) Free(req *FreeRequest, resp *FreeResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.region.Deallocate(uintptr(req.Addr)); err != nil {
		resp.Error = err.Error()
	}
	return nil
}

// Stats is the RPC-callable method "Server.Stats".
func (s *Server) Stats(_ *struct{}, resp *StatsResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp.AllocatedBytes = uint64(s.region.AllocatedSize())
	resp.TotalBytes = uint64(s.region.TotalSize())
	resp.FreeBlocks = s.region.NumFreeBlocks()
	resp.UsedBlocks = s.region.NumUsedBlocks()
	return nil
}

// Close stops accepting new connections and closes the underlying pool.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		_ = s.listener.Close()
	}
	return s.region.Close()
}
