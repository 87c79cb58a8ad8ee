package observability

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFunddMetrics(t *testing.T) {
	m := Fundd()
	if Fundd() != m {
		t.Fatalf("expected singleton registry")
	}
	before := testutil.ToFloat64(m.operations.WithLabelValues("crowdfund", "contribute", "error"))
	m.Observe("crowdfund", "contribute", time.Millisecond, errors.New("goal exceeded"))
	after := testutil.ToFloat64(m.operations.WithLabelValues("crowdfund", "contribute", "error"))
	if after-before != 1 {
		t.Fatalf("expected error counter to increase by one, got %v", after-before)
	}

	m.SetInstances("stream", 3)
	if got := testutil.ToFloat64(m.instances.WithLabelValues("stream")); got != 3 {
		t.Fatalf("expected 3 streams, got %v", got)
	}

	start := testutil.ToFloat64(m.contributed)
	m.AddContributed(big.NewRat(5, 2))
	m.AddContributed(big.NewRat(-1, 1))
	if got := testutil.ToFloat64(m.contributed) - start; got != 2.5 {
		t.Fatalf("expected 2.5 contributed, got %v", got)
	}

	start = testutil.ToFloat64(m.withdrawnSats)
	m.AddWithdrawn(big.NewInt(1500))
	if got := testutil.ToFloat64(m.withdrawnSats) - start; got != 1500 {
		t.Fatalf("expected 1500 withdrawn, got %v", got)
	}

	var nilMetrics *FunddMetrics
	nilMetrics.Observe("x", "y", 0, nil)
}
