package otel

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,broken, =x,tenant=fund ")
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "fund" {
		t.Fatalf("unexpected headers %v", got)
	}
}

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := Init(context.Background(), Config{Traces: true}); err == nil {
		t.Fatalf("expected error without service name")
	}
}
