package redis

import (
	"testing"

	"github.com/fastygo/storefront/internal/config"
)

func TestNewClientDisabledWithoutURL(t *testing.T) {
	t.Parallel()

	client, err := NewClient(config.RedisConfig{})
	if err != nil || client != nil {
		t.Fatalf("expected nil client and nil error, got %v %v", client, err)
	}
}

func TestNewClientRejectsMalformedURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(config.RedisConfig{URL: "http://not-redis"}); err == nil {
		t.Fatal("expected error for non-redis scheme")
	}
}
