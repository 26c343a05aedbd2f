package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// PublisherConfig configures the NATS analysis feed.
type PublisherConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// DefaultPublisherConfig publishes under "tradepro".
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		URL:    nats.DefaultURL,
		Prefix: "tradepro",
	}
}

// NATSPublisher publishes analyses as JSON to <prefix>.analysis.<TICKER>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	log    zerolog.Logger
}

// Connect dials NATS and returns a publisher that owns the connection.
func Connect(cfg PublisherConfig, log zerolog.Logger) (*NATSPublisher, error) {
	log = log.With().Str("component", "nats_publisher").Logger()
	nc, err := nats.Connect(
		cfg.URL,
		nats.Name("tradepro-orchestrator"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("nats_url", cfg.URL).Str("prefix", cfg.Prefix).Msg("Analysis publisher connected")
	return NewNATSPublisher(nc, cfg.Prefix, log), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(nc *nats.Conn, prefix string, log zerolog.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = "tradepro"
	}
	return &NATSPublisher{nc: nc, prefix: strings.TrimSuffix(prefix, "."), log: log}
}

var subjectReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// Subject returns the subject analyses for ticker are published on.
func (p *NATSPublisher) Subject(ticker string) string {
	return p.prefix + ".analysis." + subjectReplacer.Replace(strings.ToUpper(ticker))
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, a *Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats publisher not connected")
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	subject := p.Subject(a.Ticker)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish analysis: %w", err)
	}

	p.log.Debug().Str("subject", subject).Str("request_id", a.RequestID).Msg("Analysis published")
	return nil
}

// Connected reports whether the NATS connection is up.
func (p *NATSPublisher) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

// Publishers fans an analysis out to every member. All members are tried;
// their errors are joined.
type Publishers []Publisher

// Publish implements Publisher.
func (ps Publishers) Publish(ctx context.Context, a *Analysis) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
