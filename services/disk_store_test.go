package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_KeysStayInsideDir(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(filepath.Join(root, "certificates"))
	require.NoError(t, err)

	require.NoError(t, store.PutObject(context.Background(), "../../escape.pdf", "application/pdf", []byte("x")))

	_, err = os.Stat(filepath.Join(root, "escape.pdf"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "certificates", "escape.pdf"))
	assert.NoError(t, err)
}
