package tokens

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts engine outcomes. A nil *Metrics records nothing.
type Metrics struct {
	issuedCount   metric.Int64Counter
	verifiedCount metric.Int64Counter
	revokedCount  metric.Int64Counter
}

// NewMetrics creates the engine instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	issuedCount, err := meter.Int64Counter(
		"authkeeper.tokens.issued",
		metric.WithDescription("Tokens issued, by class"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	verifiedCount, err := meter.Int64Counter(
		"authkeeper.tokens.verified",
		metric.WithDescription("Token verifications, by class and outcome"),
		metric.WithUnit("{verification}"),
	)
	if err != nil {
		return nil, err
	}

	revokedCount, err := meter.Int64Counter(
		"authkeeper.tokens.revoked",
		metric.WithDescription("Refresh tokens revoked by logout"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		issuedCount:   issuedCount,
		verifiedCount: verifiedCount,
		revokedCount:  revokedCount,
	}, nil
}

func (m *Metrics) issued(ctx context.Context, class auth.TokenClass) {
	if m == nil {
		return
	}
	m.issuedCount.Add(ctx, 1, metric.WithAttributes(attribute.String("class", string(class))))
}

func (m *Metrics) verified(ctx context.Context, class auth.TokenClass, err error) {
	if m == nil {
		return
	}
	m.verifiedCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("class", string(class)),
		attribute.String("outcome", outcome(err)),
	))
}

func (m *Metrics) revoked(ctx context.Context) {
	if m == nil {
		return
	}
	m.revokedCount.Add(ctx, 1)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind, ok := common.AuthErrorKindOf(err); ok {
		return kind.String()
	}
	return "error"
}
