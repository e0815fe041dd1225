package notifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fathima-sithara/moms/internal/notifier"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingClient struct {
	calls int
	to    string
	err   error
}

func (c *countingClient) SendSMS(_ context.Context, to, _ string) error {
	c.calls++
	c.to = to
	return c.err
}

func TestSMSNotifier_OpensAfterFailures(t *testing.T) {
	client := &countingClient{err: errors.New("503")}
	n := notifier.NewSMSNotifier(client, 2, time.Minute, zap.NewNop())
	ctx := context.Background()

	assert.Error(t, n.Send(ctx, "9876543210", "hi"))
	assert.Error(t, n.Send(ctx, "9876543210", "hi"))
	assert.Equal(t, gobreaker.StateOpen, n.State())

	err := n.Send(ctx, "9876543210", "hi")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, client.calls)
}

func TestSMSNotifier_Formats(t *testing.T) {
	client := &countingClient{}
	n := notifier.NewSMSNotifier(client, 3, time.Minute, zap.NewNop())
	assert.NoError(t, n.Send(context.Background(), "9876543210", "hi"))
	assert.Equal(t, "+919876543210", client.to)

	assert.Equal(t, "+447700900123", notifier.E164("447700900123"))
	assert.Equal(t, "+447700900123", notifier.E164("+447700900123"))
}
