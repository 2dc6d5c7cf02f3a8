package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("role", "EVENT_STAFF"),
		attribute.String("user_id", "u-1"),
		attribute.String("scope", "event"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "role" && attrs[1].Key != "role" {
		t.Fatalf("expected role to be retained")
	}
	if attrs[0].Key != "scope" && attrs[1].Key != "scope" {
		t.Fatalf("expected scope to be retained")
	}
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordTicketPurchased(ctx, "PERCENTAGE")
	m.RecordTicketPurchased(ctx, "")
	m.RecordInviteIssued(ctx, "EVENT_STAFF", "event")
	m.RecordInviteRedeemed(ctx, "EVENT_STAFF", "event")
	m.RecordInvitesExpired(ctx, 3)
	m.RecordRateLimitDenied(ctx, "invite_redeem", "token_bucket")

	var nilMetrics *Metrics
	nilMetrics.RecordTicketPurchased(ctx, "FIXED_AMOUNT")
}
