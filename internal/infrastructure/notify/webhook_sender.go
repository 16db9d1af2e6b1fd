package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"repairtrack/internal/errs"
	"repairtrack/internal/ports"
)

const (
	signatureHeader = "X-Repairtrack-Signature"
	recipientHeader = "X-Repairtrack-Recipient"
)

// WebhookSender delivers event summaries as signed JSON POSTs to a single
// configured endpoint. The receiver demultiplexes by the recipient header.
type WebhookSender struct {
	url    string
	secret string
	client *http.Client
}

var _ ports.ChannelSender = (*WebhookSender)(nil)

func NewWebhookSender(url string, secret string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *WebhookSender) Channel() string { return "webhook" }

func (s *WebhookSender) Send(ctx context.Context, recipient string, summary ports.EventSummary) error {
	if s.url == "" {
		return errors.New("webhook url is not configured")
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return errs.Wrap(err, "encode webhook body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(recipientHeader, recipient)
	if s.secret != "" {
		req.Header.Set(signatureHeader, sign(s.secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errs.Wrap(err, "post webhook")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
