package twilio_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fathima-sithara/moms/internal/twilio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSMS(t *testing.T) {
	var gotPath, gotTo, gotBody, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotTo = r.PostForm.Get("To")
		gotBody = r.PostForm.Get("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := twilio.NewClient("AC123", "secret", "+15550000000", twilio.WithBaseURL(srv.URL))
	require.NoError(t, c.SendSMS(context.Background(), "+919876543210", "Your order is ready"))

	assert.Equal(t, "/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "+919876543210", gotTo)
	assert.Equal(t, "Your order is ready", gotBody)
}

func TestSendSMS_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid To"}`))
	}))
	defer srv.Close()

	c := twilio.NewClient("AC123", "secret", "+15550000000", twilio.WithBaseURL(srv.URL))
	err := c.SendSMS(context.Background(), "bad", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid To")

	assert.ErrorIs(t, twilio.Disabled().SendSMS(context.Background(), "x", "y"), twilio.ErrNotConfigured)
}
