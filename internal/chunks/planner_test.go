package chunks

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = 1024 * 1024

func TestPlanExample(t *testing.T) {
	chunks, err := Plan(25*mib, 10*mib, "/tmp/.download_tmp")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	want := [][2]int64{{0, 10485759}, {10485760, 20971519}, {20971520, 26214399}}
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, want[i][0], c.Start)
		assert.Equal(t, want[i][1], c.End)
		assert.Equal(t, filepath.Join("/tmp/.download_tmp", fmt.Sprintf("chunk_%d", i)), c.TempPath)
	}
}

func TestPlanCoversExactly(t *testing.T) {
	for _, tc := range []struct{ total, size int64 }{
		{1, 1}, {1, 10}, {10, 10}, {11, 10}, {99, 7}, {25 * mib, 10 * mib}, {3 * mib, mib},
	} {
		chunks, err := Plan(tc.total, tc.size, "d")
		require.NoError(t, err)
		assert.Equal(t, Count(tc.total, tc.size), len(chunks))
		var next int64
		for _, c := range chunks {
			assert.Equal(t, next, c.Start, "gap or overlap at chunk %d", c.Index)
			assert.LessOrEqual(t, c.Len(), tc.size)
			next = c.End + 1
		}
		assert.Equal(t, tc.total, next)
	}
}

func TestPlanRejectsInvalid(t *testing.T) {
	_, err := Plan(0, 10, "d")
	assert.Error(t, err)
	_, err = Plan(10, 0, "d")
	assert.Error(t, err)
}
