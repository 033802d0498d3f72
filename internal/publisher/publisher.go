// Package publisher ships an assembled Document to its two downstream
// consumers: the data broker, synchronously over HTTP, and the
// message bus, fire-and-forget with a binary self-describing encoding.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/haneul/dcrawl/internal/model"
)

// Publisher holds the two downstream connections a worker needs to
// ship a Document.
type Publisher struct {
	brokerURL string
	http      *http.Client
	nc        *nats.Conn
	subject   string
	logger    *zap.Logger
}

// New builds a Publisher. nc may be nil, in which case bus publish is
// skipped entirely (useful for tests and for workers run without a bus
// configured).
func New(brokerURL string, nc *nats.Conn, subject string, logger *zap.Logger) *Publisher {
	return &Publisher{
		brokerURL: brokerURL,
		http:      &http.Client{Timeout: 10 * time.Second},
		nc:        nc,
		subject:   subject,
		logger:    logger,
	}
}

// Publish posts the document to the data broker (failure surfaces to
// the caller) and, independently, publishes it to the message bus
// (failure is only logged). The broker is the source of truth; the
// bus is best-effort multi-consumer fanout.
func (p *Publisher) Publish(ctx context.Context, doc model.Document) error {
	brokerErr := p.publishToBroker(ctx, doc)
	p.publishToBus(doc)
	return brokerErr
}

func (p *Publisher) publishToBroker(ctx context.Context, doc model.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("publisher: encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.brokerURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("publisher: build broker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("publisher: broker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("publisher: broker responded %d", resp.StatusCode)
	}
	return nil
}

func (p *Publisher) publishToBus(doc model.Document) {
	if p.nc == nil {
		return
	}
	payload, err := msgpack.Marshal(doc)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("publisher: encode document for bus", zap.Error(err))
		}
		return
	}
	if err := p.nc.Publish(p.subject, payload); err != nil {
		if p.logger != nil {
			p.logger.Error("publisher: bus publish failed",
				zap.String("subject", p.subject),
				zap.Error(err),
			)
		}
	}
}
