// Package poolconfig loads RegionPool/SlabPool tuning knobs and the
// rpcpool listen address from flags and environment variables, via viper
// (this package reads no config file itself; values from a file the
// caller has already read into the *viper.Viper also take effect) — the
// ambient configuration layer a
// real deployment of this allocator needs (which backing to use, what
// MinBytes/alignment/slab sizing to run with, where the RPC server
// listens).
package poolconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/shenjiangwei/poolkit/pool"
)

// Backing selects which pool.Backing implementation to construct.
type Backing string

const (
	BackingHeap Backing = "heap"
	BackingMmap Backing = "mmap"
)

// Config holds every tunable this repository exposes. Defaults: MinBytes
// 4 KiB, Alignment 16, SlabWords 64.
type Config struct {
	MinBytes  uintptr
	Alignment uintptr
	SlabWords int
	Backing   Backing
	LogLevel  string
	RPCAddr   string
}

// Defaults returns this package's documented defaults.
func Defaults() Config {
	return Config{
		MinBytes:  pool.DefaultMinBytes,
		Alignment: pool.DefaultAlignment,
		SlabWords: pool.DefaultSlabWords,
		Backing:   BackingHeap,
		LogLevel:  "info",
		RPCAddr:   "127.0.0.1:7420",
	}
}

// BindFlags registers this config's knobs on a pflag.FlagSet (as used by
// cmd/poolctl's cobra commands) and binds them into v so that
// environment variables of the form POOLKIT_<NAME> take effect, as do
// values from any config file the caller has read into v, with flags
// winning over either. BindFlags does not read a config file.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	d := Defaults()

	fs.Uint64("min-bytes", uint64(d.MinBytes), "minimum per-grow backing request, in bytes")
	fs.Uint64("alignment", uint64(d.Alignment), "alignment boundary backing requests are rounded up to, in bytes")
	fs.Int("slab-words", d.SlabWords, "64-bit words per block-metadata slab bitmap")
	fs.String("backing", string(d.Backing), "backing byte source: heap or mmap")
	fs.String("log-level", d.LogLevel, "panic, fatal, error, warn, info, or debug")
	fs.String("rpc-addr", d.RPCAddr, "listen address for the pool RPC server")

	v.SetEnvPrefix("poolkit")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(fs)
}

// Load reads the values bound into v (flags, env, and whatever config
// the caller loaded into v) into a Config.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		MinBytes:  uintptr(v.GetUint64("min-bytes")),
		Alignment: uintptr(v.GetUint64("alignment")),
		SlabWords: v.GetInt("slab-words"),
		Backing:   Backing(v.GetString("backing")),
		LogLevel:  v.GetString("log-level"),
		RPCAddr:   v.GetString("rpc-addr"),
	}
	if cfg.Backing != BackingHeap && cfg.Backing != BackingMmap {
		return Config{}, fmt.Errorf("poolconfig: unknown backing %q (want %q or %q)", cfg.Backing, BackingHeap, BackingMmap)
	}
	return cfg, nil
}

// NewBacking constructs the pool.Backing this config selects.
func (c Config) NewBacking() pool.Backing {
	switch c.Backing {
	case BackingMmap:
		return pool.NewMmapBacking()
	default:
		return pool.NewHeapBacking()
	}
}

// RegionOptions converts this config into pool.Option values for
// pool.NewRegionPool.
func (c Config) RegionOptions() []pool.Option {
	return []pool.Option{
		pool.WithMinBytes(c.MinBytes),
		pool.WithAlignment(c.Alignment),
		pool.WithSlabWords(c.SlabWords),
	}
}
