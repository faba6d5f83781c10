package redis

import (
	"context"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"
)

const (
	keyPaymentDedup = "dedup:payment:%s"

	defaultDedupTTL = 48 * time.Hour
)

// PaymentDedup remembers approved payment ids for a while so provider
// redeliveries can be answered without reading the order store.
type PaymentDedup struct {
	client *goRedis.Client
	ttl    time.Duration
}

func NewPaymentDedup(client *goRedis.Client, ttl time.Duration) *PaymentDedup {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &PaymentDedup{client: client, ttl: ttl}
}

func (d *PaymentDedup) Seen(ctx context.Context, paymentID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKey(paymentID)).Result()
	return n > 0, err
}

func (d *PaymentDedup) Mark(ctx context.Context, paymentID, orderID string) error {
	return d.client.Set(ctx, dedupKey(paymentID), orderID, d.ttl).Err()
}

func dedupKey(paymentID string) string {
	return fmt.Sprintf(keyPaymentDedup, paymentID)
}
