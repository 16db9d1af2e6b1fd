package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"repairtrack/internal/errs"
	"repairtrack/internal/ports"
)

// PushSender publishes event summaries on NATS. Mobile gateways subscribe
// to <subject>.<recipient> and forward to the device.
type PushSender struct {
	conn    *nats.Conn
	subject string
}

var _ ports.ChannelSender = (*PushSender)(nil)

func NewPushSender(url string, subject string) (*PushSender, error) {
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	return &PushSender{conn: conn, subject: subject}, nil
}

func (s *PushSender) Channel() string { return "push" }

func (s *PushSender) Send(ctx context.Context, recipient string, summary ports.EventSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return errs.Wrap(err, "encode push payload")
	}

	subject := fmt.Sprintf("%s.%s", s.subject, recipient)
	if err := s.conn.Publish(subject, body); err != nil {
		return errs.Wrap(err, "publish push notification")
	}
	return s.conn.FlushWithContext(ctx)
}

func (s *PushSender) Close() {
	if s.conn != nil {
		s.conn.Drain()
	}
}
