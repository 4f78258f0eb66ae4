package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine/catalog"
)

func TestCreateCoversEveryID(t *testing.T) {
	for id := catalog.ID(0); id < catalog.Count; id++ {
		e := Create(id)
		require.NotNil(t, e, "Create(%d) returned nil", id)
	}
}

func TestCreateRejectsOutOfRange(t *testing.T) {
	for _, id := range []catalog.ID{-1, catalog.Count, 999} {
		assert.Nil(t, Create(id), "Create(%d) should return nil", id)
	}
}

func TestCreateMatchesCatalogShape(t *testing.T) {
	for id := catalog.ID(0); id < catalog.Count; id++ {
		meta, ok := catalog.Lookup(id)
		require.True(t, ok)

		e := Create(id)
		require.NotNil(t, e)
		require.NoError(t, e.Prepare(48000, 512), "ID %d (%s)", id, meta.Name)

		assert.Equal(t, meta.NumParams, e.NumParameters(), "ID %d (%s)", id, meta.Name)
		assert.Equal(t, meta.Name, e.Name(), "ID %d", id)

		if id != catalog.None {
			require.Less(t, meta.MixIndex, e.NumParameters(), "ID %d (%s)", id, meta.Name)
			assert.NotEmpty(t, e.ParameterName(meta.MixIndex), "ID %d (%s) mix name", id, meta.Name)
		}
	}
}

func TestCreateReturnsFreshInstances(t *testing.T) {
	a := Create(catalog.PlateReverb)
	b := Create(catalog.PlateReverb)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
}

func TestCreateAllOrdering(t *testing.T) {
	engines := CreateAll()
	require.Len(t, engines, catalog.Count)

	for id, e := range engines {
		meta, _ := catalog.Lookup(catalog.ID(id))
		require.NotNil(t, e, "ID %d", id)
		assert.Equal(t, meta.Name, e.Name(), "ID %d", id)
	}
}

func TestBypassIsTransparent(t *testing.T) {
	e := Create(catalog.None)
	require.NotNil(t, e)
	require.NoError(t, e.Prepare(48000, 64))

	var _ engine.Engine = e

	block := [][]float64{{0.5, -0.25, 0.125}, {1, -1, 0}}
	want := [][]float64{{0.5, -0.25, 0.125}, {1, -1, 0}}
	e.Process(block)
	assert.Equal(t, want, block)
}
