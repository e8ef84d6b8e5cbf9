package eventstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/hazae41/glace/internal/foundation/errors"
)

// Publisher fans build events out on a JetStream subject.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// envelope is the wire form of a published event.
type envelope struct {
	BuildID   string          `json:"build_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NATSPublisher publishes to <subject>.<event type>.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to url and ensures a stream captures subject.>.
func NewNATSPublisher(ctx context.Context, url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("glace"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, errors.Wrap(ErrPublishFailed, err).WithContext("url", url).Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(ErrPublishFailed, err).WithContext("url", url).Build()
	}
	stream := strings.ToUpper(strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(subject))
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{subject + ".>"},
		MaxAge:   7 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, errors.Wrap(ErrPublishFailed, err).WithContext("stream", stream).Build()
	}
	slog.Info("NATS publisher initialized", "url", url, "subject", subject, "stream", stream)
	return &NATSPublisher{conn: conn, js: js, subject: subject}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(envelope{
		BuildID:   e.BuildID(),
		Type:      e.Type(),
		Timestamp: e.Timestamp(),
		Payload:   e.Payload(),
	})
	if err != nil {
		return errors.Wrap(ErrPublishFailed, err).Build()
	}
	if _, err := p.js.Publish(ctx, p.subject+"."+e.Type(), data); err != nil {
		return errors.Wrap(ErrPublishFailed, err).WithContext("type", e.Type()).Build()
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
