package buffer

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	KindKeyDelivery = "key_delivery"

	defaultPriority = 3
)

// Item is a pending side effect kept on disk until it succeeds.
type Item struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	LastError string          `json:"last_error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = defaultPriority
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
