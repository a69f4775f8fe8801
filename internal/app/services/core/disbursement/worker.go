package disbursement

import (
	"context"

	"disbursement-service/internal/app/contracts"
	"disbursement-service/internal/app/services/shared/ledgerqueue"
	"disbursement-service/internal/pkg/constvars"
	"disbursement-service/internal/pkg/dto/requests"
	"disbursement-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	decisionConsumerTag = "disbursement-decision-consumer"
	receiptConsumerTag  = "disbursement-receipt-consumer"
)

// Worker consumes the decision-ready and ledger-receipt queues. Deliveries
// are acknowledged only after the usecase reports an outcome: infrastructure
// failures are requeued, business outcomes (duplicates, conflicts, unknown
// decisions) are acknowledged so the broker never loops on them.
type Worker struct {
	log     *zap.Logger
	usecase contracts.DisbursementUsecase
	queue   *ledgerqueue.Service
	stop    chan struct{}
}

func NewWorker(log *zap.Logger, usecase contracts.DisbursementUsecase, queue *ledgerqueue.Service) *Worker {
	return &Worker{
		log:     log,
		usecase: usecase,
		queue:   queue,
		stop:    make(chan struct{}),
	}
}

// Start opens both consumers and returns a stop function.
func (w *Worker) Start(ctx context.Context) (stop func(), err error) {
	decisions, err := w.queue.ConsumeDecisions(decisionConsumerTag)
	if err != nil {
		return nil, err
	}
	receipts, err := w.queue.ConsumeReceipts(receiptConsumerTag)
	if err != nil {
		return nil, err
	}

	go w.consumeLoop(ctx, decisions, w.handleDecision)
	go w.consumeLoop(ctx, receipts, w.handleReceipt)

	w.log.Info("disbursement worker started")
	return func() {
		close(w.stop)
	}, nil
}

func (w *Worker) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery, handle func(context.Context, amqp.Delivery)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case delivery, open := <-deliveries:
			if !open {
				w.log.Warn("disbursement worker delivery channel closed")
				return
			}
			deliveryCtx := context.WithValue(ctx, constvars.CONTEXT_REQUEST_ID_KEY, uuid.NewString())
			handle(deliveryCtx, delivery)
		}
	}
}

func (w *Worker) handleDecision(ctx context.Context, delivery amqp.Delivery) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	var decision requests.PaymentDecision
	if err := json.Unmarshal(delivery.Body, &decision); err != nil {
		w.log.Error("disbursement worker cannot parse decision message",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		w.ack(delivery, requestID)
		return
	}

	outcome, err := w.usecase.SubmitInstruction(ctx, &decision)
	if err != nil {
		if isPermanent(err) {
			w.log.Error("disbursement worker rejecting malformed decision",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingDecisionIDKey, decision.DecisionID),
				zap.Error(err),
			)
			w.ack(delivery, requestID)
			return
		}
		w.log.Error("disbursement worker decision processing failed, requeueing",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingDecisionIDKey, decision.DecisionID),
			zap.Error(err),
		)
		w.nack(delivery, requestID)
		return
	}

	w.log.Info("disbursement worker decision processed",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingDecisionIDKey, decision.DecisionID),
		zap.String(constvars.LoggingOutcomeKey, string(outcome.Kind)),
	)
	w.ack(delivery, requestID)
}

func (w *Worker) handleReceipt(ctx context.Context, delivery amqp.Delivery) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	outcome, err := w.usecase.IngestReceipt(ctx, delivery.Body)
	if err != nil {
		if isPermanent(err) {
			w.log.Error("disbursement worker rejecting malformed receipt",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Error(err),
			)
			w.ack(delivery, requestID)
			return
		}
		w.log.Error("disbursement worker receipt processing failed, requeueing",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		w.nack(delivery, requestID)
		return
	}

	w.log.Info("disbursement worker receipt processed",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingOutcomeKey, string(outcome.Kind)),
	)
	w.ack(delivery, requestID)
}

// isPermanent reports whether retrying the delivery can never succeed. Client
// class errors (malformed payloads, unsupported case types) are permanent;
// everything else is assumed transient.
func isPermanent(err error) bool {
	customErr, ok := err.(*exceptions.CustomError)
	return ok && customErr.StatusCode < constvars.StatusInternalServerError
}

func (w *Worker) ack(delivery amqp.Delivery, requestID string) {
	if err := delivery.Ack(false); err != nil {
		w.log.Error("disbursement worker ack failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
	}
}

func (w *Worker) nack(delivery amqp.Delivery, requestID string) {
	if err := delivery.Nack(false, true); err != nil {
		w.log.Error("disbursement worker nack failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
	}
}
