package rpcpool

import (
	"fmt"
	"net/rpc"
)

// Client is a thin net/rpc client for a remote Server.
type Client struct {
	conn *rpc.Client
}

// Dial connects to a Server listening at address.
func Dial(address string) (*Client, error) {
	conn, err := rpc.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("rpcpool: dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Allocate requests size bytes from the remote pool.
func (c *Client) Allocate(size uint64) (uint64, error) {
	req := &AllocRequest{Size: size}
	resp := &AllocResponse{}

	if err := c.conn.Call("Server.Allocate", req, resp); err != nil {
		return 0, fmt.Errorf("rpcpool: allocate call: %w", err)
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("rpcpool: server: %s", resp.Error)
	}
	return resp.Addr, nil
}

// Free releases addr on the remote pool.
func (c *Client) Free(addr uint64) error {
	req := &FreeRequest{Addr: addr}
	resp := &FreeResponse{}

	if err := c.conn.Call("Server.Free", req, resp); err != nil {
		return fmt.Errorf("rpcpool: free call: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("rpcpool: server: %s", resp.Error)
	}
	return nil
}

// Stats fetches the remote pool's current counters.
func (c *Client) Stats() (StatsResponse, error) {
	resp := StatsResponse{}
	if err := c.conn.Call("Server.Stats", &struct{}{}, &resp); err != nil {
		return StatsResponse{}, fmt.Errorf("rpcpool: stats call: %w", err)
	}
	return resp, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
