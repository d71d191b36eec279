// internal/adapter/events/nats.go

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"livetrack/internal/config"
	"livetrack/internal/domain/location"
)

// CleanupEvent is published after a bulk delete removed at least one fix
type CleanupEvent struct {
	Cutoff       time.Time `json:"cutoff"`
	DeletedCount int64     `json:"deletedCount"`
	Timestamp    time.Time `json:"timestamp"`
}

// conn is the subset of *nats.Conn the publisher needs
type conn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher forwards persisted fixes and cleanup runs to the event bus
type NATSPublisher struct {
	nc     conn
	prefix string
	logger *zap.Logger
}

// NewNATSPublisher creates a publisher writing under the given subject prefix
func NewNATSPublisher(nc *nats.Conn, prefix string, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{
		nc:     nc,
		prefix: prefix,
		logger: logger,
	}
}

// LocationSubject returns the subject carrying updates of one track. The
// track id always occupies exactly one subject token.
func (p *NATSPublisher) LocationSubject(trackID string) string {
	return fmt.Sprintf("%s.location.%s", p.prefix, subjectToken(trackID))
}

const hexDigits = "0123456789ABCDEF"

// subjectToken percent-encodes every byte other than ASCII letters, digits
// and "-_~:". The token separator, the wildcards and the escape byte are
// all encoded, so distinct ids map to distinct tokens.
func subjectToken(id string) string {
	var b strings.Builder
	b.Grow(len(id))

	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '~', c == ':':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0F])
		}
	}

	return b.String()
}

// CleanupSubject returns the subject carrying cleanup notifications
func (p *NATSPublisher) CleanupSubject() string {
	return p.prefix + ".cleanup"
}

// PublishLocation publishes a persisted fix
func (p *NATSPublisher) PublishLocation(ctx context.Context, pos location.Position) error {
	return p.publish(ctx, p.LocationSubject(pos.TrackID), pos)
}

// PublishCleanup publishes the outcome of a cleanup run
func (p *NATSPublisher) PublishCleanup(ctx context.Context, cutoff time.Time, deleted int64) error {
	return p.publish(ctx, p.CleanupSubject(), CleanupEvent{
		Cutoff:       cutoff,
		DeletedCount: deleted,
		Timestamp:    time.Now().UTC(),
	})
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}

	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("error publishing to %s: %w", subject, err)
	}

	p.logger.Debug("Published event", zap.String("subject", subject), zap.Int("bytes", len(data)))

	return nil
}

// Connect opens a NATS connection with reconnect handlers that log through logger
func Connect(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.Name("livetrack"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
