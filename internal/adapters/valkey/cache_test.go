package valkey_test

import (
	"testing"

	"github.com/samirrijal/busticket/internal/adapters/valkey"
)

func TestKeyspace(t *testing.T) {
	tests := map[string]string{
		"trips:id:42":          "trips",
		"tickets:seat:t-1:12A": "tickets",
		"config:REFUND_2H":     "config",
		"plain":                "plain",
		":leading":             ":leading",
	}
	for key, want := range tests {
		if got := valkey.Keyspace(key); got != want {
			t.Errorf("Keyspace(%q) = %q, want %q", key, got, want)
		}
	}
}
