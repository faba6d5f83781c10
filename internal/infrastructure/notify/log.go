package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/storefront/pkg/logger"
	"github.com/fastygo/storefront/usecase"
)

// LogNotifier writes deliveries to the log. It is the driver for local runs
// where no mail worker is attached.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Deliver(ctx context.Context, d usecase.Delivery) error {
	codes := make([]string, 0, len(d.Keys))
	for _, k := range d.Keys {
		codes = append(codes, k.ProductName+": "+k.Key)
	}
	logger.WithRequestID(ctx, n.logger).Info("keys delivered",
		zap.String("order_id", d.Order.ID),
		zap.String("email", d.CustomerEmail),
		zap.String("name", d.CustomerName),
		zap.Strings("keys", codes))
	return nil
}

var _ usecase.Notifier = (*LogNotifier)(nil)
