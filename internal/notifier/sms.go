package notifier

import (
	"context"
	"strings"
	"time"

	"github.com/fathima-sithara/moms/internal/twilio"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultCountryCode is prefixed to ten-digit national numbers.
const DefaultCountryCode = "91"

// SMSNotifier sends SMS through Twilio behind a circuit breaker so a failing
// provider does not stall event processing.
type SMSNotifier struct {
	client twilio.Client
	cb     *gobreaker.CircuitBreaker
	log    *zap.Logger
}

func NewSMSNotifier(client twilio.Client, maxFailures uint32, openTimeout time.Duration, log *zap.Logger) *SMSNotifier {
	st := gobreaker.Settings{
		Name:        "twilio-sms",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &SMSNotifier{client: client, cb: gobreaker.NewCircuitBreaker(st), log: log}
}

func (s *SMSNotifier) Send(ctx context.Context, phone, message string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.SendSMS(ctx, E164(phone), message)
	})
	return err
}

func (s *SMSNotifier) State() gobreaker.State { return s.cb.State() }

// E164 turns stored digits into a dialable number.
func E164(phone string) string {
	phone = strings.TrimPrefix(phone, "+")
	if len(phone) == 10 {
		return "+" + DefaultCountryCode + phone
	}
	return "+" + phone
}
