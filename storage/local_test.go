package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	payload := []byte(`{"법령": {"법령ID": "001706"}}`)
	key := PayloadKey("001706", payload)

	require.NoError(t, s.Put(ctx, key, bytes.NewReader(payload)))

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, s.Put(ctx, key, strings.NewReader("replaced")))
	rc, err = s.Get(ctx, key)
	require.NoError(t, err)
	got, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "replaced", string(got))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.NoError(t, s.Delete(ctx, key), "deleting a missing object is not an error")
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Put(context.Background(), "../outside.json", strings.NewReader("x")))
	_, err = s.Get(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestPayloadKey(t *testing.T) {
	a := PayloadKey("001706", []byte("one"))
	b := PayloadKey("001706", []byte("one"))
	c := PayloadKey("001706", []byte("two"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "laws/001706/"))
	assert.True(t, strings.HasSuffix(a, ".json"))
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(a, "laws/001706/"), ".json"), 16)

	assert.True(t, strings.HasPrefix(PayloadKey("", []byte("x")), "laws/unknown/"))
	assert.NotContains(t, PayloadKey("../a/b", []byte("x")), "..")
}
