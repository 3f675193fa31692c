package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Operation("enroll", "created")
	m.Operation("enroll", "created")
	m.Operation("verify", "no_match")

	if got := testutil.ToFloat64(m.Operations.WithLabelValues("enroll", "created")); got != 2 {
		t.Errorf("expected 2 enroll/created, got %v", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("verify", "no_match")); got != 1 {
		t.Errorf("expected 1 verify/no_match, got %v", got)
	}
}

func TestOperation_NilMetrics(t *testing.T) {
	var m *Metrics
	m.Operation("enroll", "created")
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	New(reg)
}
