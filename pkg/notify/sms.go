package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/pkg/client"
	"github.com/coravoice/call-gateway/pkg/logger"
)

// SMSSender delivers confirmation texts after side-effecting tool calls.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// SMSClient sends messages through the SMS relay service.
type SMSClient struct {
	http    *client.HTTPClient
	baseURL string
	log     *zap.Logger
}

func NewSMSClient(baseURL string, timeout time.Duration, log *zap.Logger) *SMSClient {
	return &SMSClient{
		http:    client.NewHTTPClient("sms-relay", timeout),
		baseURL: baseURL,
		log:     log,
	}
}

func (s *SMSClient) Send(ctx context.Context, phone, message string) error {
	payload := map[string]string{
		"to":   phone,
		"body": message,
	}

	resp, err := s.http.Post(ctx, s.baseURL+"/v1/messages", payload)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("SMS relay returned %d", resp.StatusCode)
	}

	s.log.Info("SMS dispatched", logger.MaskPhone("to", phone))
	return nil
}

// Noop discards messages. Used when no relay is configured and in tests.
type Noop struct{}

func (Noop) Send(ctx context.Context, phone, message string) error {
	return nil
}
