// Package diag publishes validation results to NATS subjects for
// editor-diagnostics adapters. Publishing is fire-and-forget: a validation
// run never blocks on, or fails because of, the diagnostics channel.
package diag

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/archlint/validate"
)

// SubjectPrefix is the root of the diagnostics subject hierarchy:
// archlint.diag.<runID>.<path tokens>.
const SubjectPrefix = "archlint.diag"

// Publisher sends per-file validation results over a NATS connection.
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewPublisher wraps an established NATS connection.
func NewPublisher(nc *nats.Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{nc: nc, logger: logger}
}

// Connect dials url and returns a publisher over the new connection.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("archlint-diag"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewPublisher(nc, logger), nil
}

// Publish sends one result on its per-file subject. Failures are logged,
// never returned to the validation path.
func (p *Publisher) Publish(runID string, res *validate.Result) {
	payload, err := json.Marshal(res)
	if err != nil {
		p.logger.Warn("marshal diagnostics", slog.String("error", err.Error()))
		return
	}
	subject := Subject(runID, res.Path)
	if err := p.nc.Publish(subject, payload); err != nil {
		p.logger.Warn("publish diagnostics",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
	}
}

// PublishBatch sends every result of a batch.
func (p *Publisher) PublishBatch(batch *validate.Batch) {
	for _, res := range batch.Results {
		p.Publish(batch.RunID, res)
	}
	_ = p.nc.Flush()
}

// Close drains and closes the underlying connection.
func (p *Publisher) Close() {
	p.nc.Close()
}

// Subject renders the diagnostics subject for a run and file path. Path
// separators and dots become subject-safe tokens.
func Subject(runID, path string) string {
	token := strings.NewReplacer("/", ".", "\\", ".", " ", "_").Replace(path)
	token = strings.Trim(token, ".")
	if token == "" {
		token = "_"
	}
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, runID, token)
}
