package telemetry

import (
	"context"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}

	fields := otel.GetTextMapPropagator().Fields()
	want := map[string]bool{"traceparent": false, "baggage": false}
	for _, f := range fields {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Fatalf("expected propagator field %q in %v", field, fields)
		}
	}

	header := http.Header{}
	otel.GetTextMapPropagator().Inject(context.Background(), propagation.HeaderCarrier(header))
	if len(header) != 0 {
		t.Fatalf("no span in context must inject nothing, got %v", header)
	}
}
