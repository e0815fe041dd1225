package services_test

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/fathima-sithara/moms/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadChatImage(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")
	ms := e.clock.Now().UnixMilli()

	out, err := e.media.UploadImage(e.ctx, sess, services.Upload{
		Kind:        services.MediaChat,
		Filename:    "../My Photo.png",
		ContentType: "image/png",
		Data:        pngBytes(t, 640, 480),
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("chat/H1/%d_My_Photo.png", ms), out.Key)
	assert.Equal(t, "mem://"+out.Key+"?expires=600", out.URL)
	assert.Equal(t, fmt.Sprintf("chat/H1/%d_My_Photo_thumb.jpg", ms), out.ThumbnailKey)

	thumb, ok := e.blobs.Get(out.ThumbnailKey)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", thumb.ContentType)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb.Data))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
}

func TestUploadPaymentScreenshot(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")

	out, err := e.media.UploadImage(e.ctx, sess, services.Upload{
		Kind:        services.MediaPayment,
		Filename:    "upi.png",
		ContentType: "image/png",
		Data:        pngBytes(t, 10, 10),
	})
	require.NoError(t, err)
	assert.Contains(t, out.Key, "payments/"+sess.UserID()+"/")
	assert.Empty(t, out.ThumbnailKey)
	assert.Equal(t, 1, e.blobs.Len())
}

func TestUploadRejects(t *testing.T) {
	e := newEnv(t)
	sess := e.register(memberPhone, "Ravi")

	cases := map[string]services.Upload{
		"not an image":  {Kind: services.MediaPayment, Filename: "a.txt", ContentType: "text/plain", Data: []byte("hello")},
		"lying header":  {Kind: services.MediaPayment, Filename: "a.png", ContentType: "image/png", Data: []byte("definitely not a png")},
		"too large":     {Kind: services.MediaPayment, Filename: "a.png", ContentType: "image/png", Data: make([]byte, 65<<10)},
		"empty":         {Kind: services.MediaPayment, Filename: "a.png", ContentType: "image/png"},
		"unknown kind":  {Kind: "avatar", Filename: "a.png", ContentType: "image/png", Data: pngBytes(t, 2, 2)},
	}
	for name, up := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.media.UploadImage(e.ctx, sess, up)
			assert.True(t, services.IsValidation(err), err)
		})
	}
	assert.Zero(t, e.blobs.Len())

	_, err := e.media.UploadImage(e.ctx, sess, services.Upload{Kind: services.MediaChat, HouseID: "H2", Filename: "a.png", ContentType: "image/png", Data: pngBytes(t, 2, 2)})
	assert.ErrorIs(t, err, services.ErrNotFound)
}
