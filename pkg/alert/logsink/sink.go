package logsink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// Sink writes each selected finding to the context logger. The default alert
// channel when nothing external is configured.
type Sink struct{}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Notify(ctx context.Context, findings []domain.Finding) error {
	logger := zerolog.Ctx(ctx)
	for _, f := range findings {
		event := logger.Warn().
			Str("identity_id", f.IdentityID).
			Str("identity_type", string(f.IdentityType)).
			Str("platform", f.Platform).
			Int("score", f.Score).
			Str("level", f.Level.String())
		if top, ok := f.TopFactor(); ok {
			event = event.Str("top_factor", top.Factor).Str("evidence", top.Evidence)
		}
		event.Msg("access risk alert")
	}
	return nil
}
