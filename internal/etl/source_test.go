package etl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct{ typ string }

func (s stubSource) Spec() SourceSpec { return SourceSpec{Type: s.typ, Label: s.typ} }

func (s stubSource) Discover(context.Context, SourceConfig) (*Schema, error) {
	return textSchema("a"), nil
}

func (s stubSource) Read(context.Context, SourceConfig) (*Schema, []Record, error) {
	return textSchema("a"), []Record{rec("a", "1")}, nil
}

func TestSourceConfig(t *testing.T) {
	cfg := SourceConfig{
		"name":    "wage",
		"empty":   "",
		"skipInt": 2,
		"skipF":   float64(3),
		"skipS":   "4",
		"skipBad": "x",
		"header":  "false",
		"wait":    "2s",
		"waitBad": "soon",
		"waitNum": 5,
	}

	t.Run("Should fall back to defaults", func(t *testing.T) {
		assert.Equal(t, "wage", cfg.String("name", "x"))
		assert.Equal(t, "x", cfg.String("empty", "x"))
		assert.Equal(t, "x", cfg.String("missing", "x"))
	})

	t.Run("Should accept ints from every decoder", func(t *testing.T) {
		assert.Equal(t, 2, cfg.Int("skipInt", 0))
		assert.Equal(t, 3, cfg.Int("skipF", 0))
		assert.Equal(t, 4, cfg.Int("skipS", 0))
		assert.Equal(t, 9, cfg.Int("skipBad", 9))
	})

	t.Run("Should parse booleans", func(t *testing.T) {
		assert.False(t, cfg.Bool("header", true))
		assert.True(t, cfg.Bool("missing", true))
	})

	t.Run("Should parse durations", func(t *testing.T) {
		d, err := cfg.Duration("wait", time.Second)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, d)

		d, err = cfg.Duration("missing", time.Second)
		require.NoError(t, err)
		assert.Equal(t, time.Second, d)

		_, err = cfg.Duration("waitBad", time.Second)
		assert.Error(t, err)
		_, err = cfg.Duration("waitNum", time.Second)
		assert.Error(t, err)
	})
}

func TestSourceRegistry(t *testing.T) {
	RegisterSource(stubSource{typ: "zz_stub"})
	RegisterSource(stubSource{typ: "aa_stub"})

	src, err := GetSource("zz_stub")
	require.NoError(t, err)
	assert.Equal(t, "zz_stub", src.Spec().Type)

	_, err = GetSource("nope")
	assert.Error(t, err)

	var types []string
	for _, s := range ListSources() {
		types = append(types, s.Type)
	}
	assert.IsIncreasing(t, types)
	assert.Contains(t, types, "aa_stub")
}
