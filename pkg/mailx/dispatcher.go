package mailx

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mail_deliveries_total",
		Help: "Total number of attempted email deliveries.",
	})

	deliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mail_delivery_failures_total",
		Help: "Total number of failed email deliveries.",
	})
)

// Dispatcher sends mail fire-and-forget: callers never block on delivery and
// never observe delivery errors. Failures are logged and counted so alerting
// can pick them up.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// Dispatch queues a message for asynchronous delivery.
func (d *Dispatcher) Dispatch(msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		deliveriesTotal.Inc()
		if err := d.sender.Send(ctx, msg); err != nil {
			deliveryFailures.Inc()
			d.logger.Error("email delivery failed", "to", msg.To, "error", err)
		}
	}()
}

// Close waits for in-flight deliveries to finish. Used during shutdown.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}
