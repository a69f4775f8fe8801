package reconciliation

import (
	"context"
	"fmt"
	"time"

	"disbursement-service/internal/app/config"
	"disbursement-service/internal/app/contracts"
	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/constvars"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	leaderLockKey      = "reconciliation:worker:lock"
	windowMarkerPrefix = "reconciliation:worker:window"

	// windowMarkerTTL outlives the window by a full day so an hourly tick
	// never reconciles the same window twice.
	windowMarkerTTL = 48 * time.Hour
)

// Worker runs the periodic reconciliation on a schedule. The leader lock
// makes sure only one instance reconciles per tick; losing the lock is
// normal, another instance is doing the work.
type Worker struct {
	log     *zap.Logger
	cfg     *config.InternalConfig
	locker  contracts.LockerService
	usecase contracts.ReconciliationUsecase
	stop    chan struct{}
}

func NewWorker(log *zap.Logger, cfg *config.InternalConfig, locker contracts.LockerService, usecase contracts.ReconciliationUsecase) *Worker {
	return &Worker{
		log:     log,
		cfg:     cfg,
		locker:  locker,
		usecase: usecase,
		stop:    make(chan struct{}),
	}
}

// Start begins the ticker loop. It returns a stop function to halt execution.
func (w *Worker) Start(ctx context.Context) (stop func()) {
	intervalMinutes := w.cfg.Reconciliation.WorkerIntervalInMinutes
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-w.stop:
				ticker.Stop()
				return
			case now := <-ticker.C:
				w.runOnce(ctx, now)
			}
		}
	}()

	w.log.Info("reconciliation worker started",
		zap.Int("interval_minutes", intervalMinutes),
	)
	return func() {
		close(w.stop)
	}
}

// runOnce reconciles the previous day's settlement window for every case
// type under the leader lock, at most once per window.
func (w *Worker) runOnce(ctx context.Context, now time.Time) {
	runCtx := context.WithValue(ctx, constvars.CONTEXT_REQUEST_ID_KEY, uuid.NewString())
	requestID, _ := runCtx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	ttl := time.Duration(w.cfg.Reconciliation.LeaderLockTTLInSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	acquired, lockValue, err := w.locker.TryLock(runCtx, leaderLockKey, ttl)
	if err != nil {
		w.log.Error("reconciliation worker lock attempt failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return
	}
	if !acquired {
		w.log.Info("reconciliation worker lock held elsewhere, skipping tick",
			zap.String(constvars.LoggingRequestIDKey, requestID),
		)
		return
	}
	defer func() {
		if err := w.locker.Unlock(runCtx, leaderLockKey, lockValue); err != nil {
			w.log.Error("reconciliation worker unlock failed",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Error(err),
			)
		}
	}()

	windowTo := now.UTC().Truncate(24 * time.Hour)
	windowFrom := windowTo.Add(-24 * time.Hour)

	// The marker makes the hourly tick reconcile each window once. It is
	// released again when every run fails, so the next tick retries.
	windowKey := fmt.Sprintf("%s:%s", windowMarkerPrefix, windowFrom.Format("2006-01-02"))
	marked, markerValue, err := w.locker.TryLock(runCtx, windowKey, windowMarkerTTL)
	if err != nil {
		w.log.Error("reconciliation worker window marker attempt failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return
	}
	if !marked {
		w.log.Info("reconciliation worker window already reconciled, skipping tick",
			zap.String(constvars.LoggingRequestIDKey, requestID),
		)
		return
	}

	succeeded := 0
	caseTypes := []models.CaseType{models.CaseTypeSurvivorSupport, models.CaseTypeChildPension}
	for _, caseType := range caseTypes {
		result, err := w.usecase.RunPeriodic(runCtx, &contracts.PeriodicRunInput{
			CaseType:   caseType,
			WindowFrom: windowFrom,
			WindowTo:   windowTo,
		})
		if err != nil {
			w.log.Error("reconciliation worker periodic run failed",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingCaseTypeKey, string(caseType)),
				zap.Error(err),
			)
			continue
		}
		succeeded++
		w.log.Info("reconciliation worker periodic run complete",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingCaseTypeKey, string(caseType)),
			zap.String(constvars.LoggingCorrelationIDKey, result.CorrelationID),
			zap.Int(constvars.LoggingFrameCountKey, result.FrameCount),
		)
	}

	if succeeded == 0 {
		if err := w.locker.Unlock(runCtx, windowKey, markerValue); err != nil {
			w.log.Error("reconciliation worker window marker release failed",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Error(err),
			)
		}
	}
}
