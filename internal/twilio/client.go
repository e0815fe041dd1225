package twilio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

// Client sends SMS messages.
type Client interface {
	SendSMS(ctx context.Context, toPhoneNumber, message string) error
}

type twilioClient struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

type Option func(*twilioClient)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *twilioClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func NewClient(accountSID, authToken, fromNumber string, opts ...Option) Client {
	c := &twilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (tc *twilioClient) SendSMS(ctx context.Context, toPhoneNumber, message string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", tc.baseURL, tc.accountSID)

	data := url.Values{}
	data.Set("To", toPhoneNumber)
	data.Set("From", tc.fromNumber)
	data.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create Twilio SMS request: %w", err)
	}
	req.SetBasicAuth(tc.accountSID, tc.authToken)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Twilio SMS request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

var ErrNotConfigured = errors.New("twilio is not configured")

type disabled struct{}

// Disabled is used when no account is configured; every send fails.
func Disabled() Client { return disabled{} }

func (disabled) SendSMS(context.Context, string, string) error {
	return ErrNotConfigured
}
