package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlags(t *testing.T) {
	f := New([]string{"feature1"})

	t.Run("set flags are reported", func(t *testing.T) {
		require.True(t, f.Set("feature1"))
		require.False(t, f.Set("feature2"))
	})

	t.Run("run if not set", func(t *testing.T) {
		var runFeature1 bool
		f.IfNotSet("feature1", func() {
			runFeature1 = true
		})
		require.False(t, runFeature1)

		var runFeature2 bool
		f.IfNotSet("feature2", func() {
			runFeature2 = true
		})
		require.True(t, runFeature2)
	})

	t.Run("empty flag set", func(t *testing.T) {
		f := New(nil)
		require.False(t, f.Set(FlagDisableDebugEndpoints))

		var run bool
		f.IfNotSet(FlagDisableOverlapScan, func() {
			run = true
		})
		require.True(t, run)
	})
}
