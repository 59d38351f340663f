package chrdev

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chrdev")
	r, err := NewRegistry(dir)
	require.NoError(t, err)
	defer r.Free()

	assert.DirExists(t, dir)
	assert.Equal(t, 0, r.Len())
}

func TestAllocateUnix(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(dir)
	require.NoError(t, err)
	defer r.Free()

	ep, err := r.AllocateUnix("console")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "console.sock"), ep.Path)
	assert.NotEmpty(t, ep.ID)

	got, ok := r.Lookup(ep.ID)
	require.True(t, ok)
	assert.Same(t, ep, got)
	assert.Equal(t, 1, r.Len())
}

func TestAllocatePTY(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	require.NoError(t, err)
	defer r.Free()

	ep, err := r.AllocatePTY()
	if err != nil {
		t.Skipf("pty not available in this environment: %v", err)
	}
	assert.NotEmpty(t, ep.Path)
	assert.Equal(t, 1, r.Len())
}

func TestFreeIsIdempotentAndNilSafe(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	require.NoError(t, err)

	_, err = r.AllocateUnix("serial")
	require.NoError(t, err)

	r.Free()
	r.Free() // second free is a no-op

	_, err = r.AllocateUnix("console")
	require.ErrorIs(t, err, ErrRegistryClosed)

	var nilReg *Registry
	nilReg.Free() // must not panic
}
