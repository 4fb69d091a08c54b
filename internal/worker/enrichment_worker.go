package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EnrichmentWorker consumes background jobs from a RabbitMQ queue with one
// goroutine per prefetched delivery. Failed jobs are dropped, not requeued.
type EnrichmentWorker struct {
	conn      *amqp.Connection
	handler   Handler
	queueName string
	prefetch  int

	ch     *amqp.Channel
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEnrichmentWorker(conn *amqp.Connection, handler Handler, queueName string, prefetch int) *EnrichmentWorker {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &EnrichmentWorker{
		conn:      conn,
		handler:   handler,
		queueName: queueName,
		prefetch:  prefetch,
	}
}

func (w *EnrichmentWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.ch = ch
	w.consume(workerCtx, deliveries)
	return nil
}

// consume starts prefetch goroutines that share deliveries until ctx is done
// or the delivery channel closes.
func (w *EnrichmentWorker) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for i := 0; i < w.prefetch; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()

			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					w.process(ctx, d)
				}
			}
		}()
	}
}

func (w *EnrichmentWorker) process(ctx context.Context, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Printf("worker decode job failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.handler.Handle(ctx, job); err != nil {
		log.Printf("worker handle %s job %s (document %d) failed: %v", job.Kind, job.ID, job.DocumentID, err)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *EnrichmentWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	if w.ch != nil {
		_ = w.ch.Close()
	}
}
