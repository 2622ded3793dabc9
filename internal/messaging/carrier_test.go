package messaging

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier(t *testing.T) {
	t.Run("set replaces existing header", func(t *testing.T) {
		msg := kafka.Message{Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte("order.created")}}}
		c := carrierFor(&msg)

		c.Set(HeaderEventType, "order.cancelled")
		c.Set("content-type", "application/json")

		if len(msg.Headers) != 2 {
			t.Fatalf("expected 2 headers, got %d", len(msg.Headers))
		}
		if got := c.Get(HeaderEventType); got != "order.cancelled" {
			t.Errorf("expected order.cancelled, got %q", got)
		}
		if got := c.Get("missing"); got != "" {
			t.Errorf("expected empty value, got %q", got)
		}
	})

	t.Run("round trips trace context", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
			Remote:     true,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		var msg kafka.Message
		prop := propagation.TraceContext{}
		prop.Inject(ctx, carrierFor(&msg))

		keys := carrierFor(&msg).Keys()
		if len(keys) != 1 || keys[0] != "traceparent" {
			t.Fatalf("expected a traceparent header, got %v", keys)
		}

		got := trace.SpanContextFromContext(prop.Extract(context.Background(), carrierFor(&msg)))
		if got.TraceID() != traceID {
			t.Errorf("expected trace id %s, got %s", traceID, got.TraceID())
		}
		if got.SpanID() != spanID {
			t.Errorf("expected span id %s, got %s", spanID, got.SpanID())
		}
	})
}
