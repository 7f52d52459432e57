package skyvis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatClone(t *testing.T) {
	t.Parallel()

	src := makeTestMat(3, 4, func(r, c int) float32 { return float32(r*4 + c) })
	defer src.Close()

	dup := src.Clone()
	defer dup.Close()

	require.Equal(t, src.Rows(), dup.Rows())
	require.Equal(t, src.Cols(), dup.Cols())
	assert.Equal(t, src.DataFloat32(), dup.DataFloat32())

	dup.DataFloat32()[0] = -1
	assert.NotEqual(t, src.DataFloat32()[0], dup.DataFloat32()[0])
}

func TestCopyMatToResizes(t *testing.T) {
	t.Parallel()

	src := makeTestMat(5, 7, func(r, c int) float32 { return float32(c) })
	defer src.Close()

	dst := NewMat()
	defer dst.Close()
	CopyMatTo(src, &dst)

	require.Equal(t, 5, dst.Rows())
	require.Equal(t, 7, dst.Cols())
	assert.Equal(t, src.DataFloat32(), dst.DataFloat32())
}

func TestNewMatWithSizeZeroed(t *testing.T) {
	t.Parallel()

	m := NewMatWithSize(4, 4)
	defer m.Close()

	assert.False(t, m.Empty())
	for _, v := range m.DataFloat32() {
		assert.Zero(t, v)
	}
}
