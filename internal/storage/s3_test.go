package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, "chat/h1/1700_my%20photo.png", escapeKey("chat/h1/1700_my photo.png"))
}

func TestPublicURL(t *testing.T) {
	s := &S3Store{bucket: "moms", region: "ap-south-1"}
	assert.Equal(t, "https://moms.s3.ap-south-1.amazonaws.com/payments/u1/a.png", s.publicURL("payments/u1/a.png"))

	s.endpoint = "http://localhost:9000/"
	assert.Equal(t, "http://localhost:9000/moms/payments/u1/a.png", s.publicURL("payments/u1/a.png"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(false)

	url, err := m.Upload(ctx, "k", "image/png", []byte{1, 2})
	require.NoError(t, err)
	assert.Empty(t, url)

	_, err = m.PresignURL(ctx, "missing", time.Minute)
	assert.Error(t, err)

	signed, err := m.PresignURL(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "mem://k?expires=60", signed)

	obj, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)
}
