// Package ledgerqueue owns the RabbitMQ channel to the disbursement ledger:
// the two inbound queues (decision-ready events and ledger receipts) and the
// two outbound queues (disbursement payloads and reconciliation frames).
package ledgerqueue

import (
	"context"
	"disbursement-service/internal/app/config"
	"disbursement-service/internal/pkg/constvars"
	"disbursement-service/internal/pkg/exceptions"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Service struct {
	ch       *amqp.Channel
	log      *zap.Logger
	cfg      *config.InternalConfig
	limiter  *rate.Limiter
	confirms chan amqp.Confirmation
	mu       sync.Mutex
}

// NewService opens a channel, declares all durable queues, enables publisher
// confirms and sets QoS. The dispatch rate limiter throttles outbound sends
// so a resweep cannot flood the ledger.
func NewService(conn *amqp.Connection, internalConfig *config.InternalConfig, log *zap.Logger) (*Service, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	queueNames := []string{
		internalConfig.Queue.DecisionReadyQueue,
		internalConfig.Queue.LedgerReceiptQueue,
		internalConfig.Queue.DisbursementOutQueue,
		internalConfig.Queue.ReconciliationOutQueue,
	}
	for _, queueName := range queueNames {
		_, err = ch.QueueDeclare(
			queueName, // name
			true,      // durable
			false,     // autoDelete
			false,     // exclusive
			false,     // noWait
			nil,       // args
		)
		if err != nil {
			return nil, err
		}
	}

	prefetch := internalConfig.Queue.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		return nil, err
	}

	ratePerSecond := internalConfig.Disbursement.DispatchRatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	burst := internalConfig.Disbursement.DispatchBurst
	if burst <= 0 {
		burst = 1
	}

	svc := &Service{
		ch:       ch,
		log:      log,
		cfg:      internalConfig,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}

	return svc, nil
}

// PublishDisbursement ships one wire payload to the ledger. The call blocks
// until the broker confirms the message; there is no internal retry.
func (s *Service) PublishDisbursement(ctx context.Context, payload string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return exceptions.ErrQueuePublish(err)
	}
	return s.publish(ctx, s.cfg.Queue.DisbursementOutQueue, []byte(payload))
}

// PublishReconciliation ships one reconciliation frame. Frame order is the
// caller's responsibility; publishes on one channel preserve queue order.
func (s *Service) PublishReconciliation(ctx context.Context, payload string) error {
	return s.publish(ctx, s.cfg.Queue.ReconciliationOutQueue, []byte(payload))
}

// ConsumeDecisions returns the delivery stream of decision-ready events.
// Deliveries must be acked or nacked by the consumer.
func (s *Service) ConsumeDecisions(consumerTag string) (<-chan amqp.Delivery, error) {
	return s.consume(s.cfg.Queue.DecisionReadyQueue, consumerTag)
}

// ConsumeReceipts returns the delivery stream of ledger receipts.
func (s *Service) ConsumeReceipts(consumerTag string) (<-chan amqp.Delivery, error) {
	return s.consume(s.cfg.Queue.LedgerReceiptQueue, consumerTag)
}

func (s *Service) consume(queueName, consumerTag string) (<-chan amqp.Delivery, error) {
	return s.ch.Consume(
		queueName,
		consumerTag,
		false, // autoAck: consumers ack after processing
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
}

func (s *Service) publish(ctx context.Context, queueName string, body []byte) error {
	// Publish and confirm must pair up, so only one publish is in flight.
	s.mu.Lock()
	defer s.mu.Unlock()

	expectedTag := s.ch.GetNextPublishSeqNo()
	err := s.ch.PublishWithContext(ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  constvars.MIMEApplicationXML,
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return exceptions.ErrQueuePublish(err)
	}

	confirmation, err := awaitConfirm(ctx, s.confirms, expectedTag)
	if err != nil {
		return exceptions.ErrQueuePublish(err)
	}
	if !confirmation.Ack {
		err := exceptions.ErrQueueNotConfirmed(fmt.Errorf("broker nacked delivery tag %d", confirmation.DeliveryTag))
		s.log.Error("ledgerqueue.publish broker nacked message",
			zap.String(constvars.LoggingQueueKey, queueName),
			zap.Error(err),
		)
		return err
	}

	s.log.Debug("ledgerqueue.publish confirmed",
		zap.String(constvars.LoggingQueueKey, queueName),
	)
	return nil
}

// awaitConfirm waits for the confirmation carrying expectedTag. A lower tag
// belongs to a publish that was abandoned on context cancellation before its
// confirmation arrived; accepting it would report success for a message the
// broker never confirmed, so stale tags are discarded.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, expectedTag uint64) (amqp.Confirmation, error) {
	for {
		select {
		case confirmation := <-confirms:
			if confirmation.DeliveryTag < expectedTag {
				continue
			}
			return confirmation, nil
		case <-ctx.Done():
			return amqp.Confirmation{}, ctx.Err()
		}
	}
}
