package poolconfig

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shenjiangwei/poolkit/pool"
)

func TestLoadUsesDefaults(t *testing.T) {
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(v, fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(v)
	require.NoError(t, err)

	d := Defaults()
	assert.Equal(t, d.MinBytes, cfg.MinBytes)
	assert.Equal(t, d.Alignment, cfg.Alignment)
	assert.Equal(t, d.SlabWords, cfg.SlabWords)
	assert.Equal(t, d.Backing, cfg.Backing)
}

func TestLoadHonorsOverriddenFlags(t *testing.T) {
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(v, fs)
	require.NoError(t, fs.Parse([]string{"--min-bytes=8192", "--backing=mmap"}))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, uintptr(8192), cfg.MinBytes)
	assert.Equal(t, BackingMmap, cfg.Backing)
}

func TestLoadRejectsUnknownBacking(t *testing.T) {
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(v, fs)
	require.NoError(t, fs.Parse([]string{"--backing=disk"}))

	_, err := Load(v)
	assert.Error(t, err)
}

func TestNewBackingSelectsImplementation(t *testing.T) {
	heap := Config{Backing: BackingHeap}
	mmap := Config{Backing: BackingMmap}

	assert.IsType(t, &pool.HeapBacking{}, heap.NewBacking())
	assert.IsType(t, &pool.MmapBacking{}, mmap.NewBacking())
}
