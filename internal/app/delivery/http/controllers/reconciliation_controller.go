package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"disbursement-service/internal/app/contracts"
	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/constvars"
	"disbursement-service/internal/pkg/dto/requests"
	"disbursement-service/internal/pkg/dto/responses"
	"disbursement-service/internal/pkg/exceptions"
	"disbursement-service/internal/pkg/utils"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type ReconciliationController struct {
	Log                   *zap.Logger
	ReconciliationUsecase contracts.ReconciliationUsecase
}

var (
	reconciliationControllerInstance *ReconciliationController
	onceReconciliationController     sync.Once
)

func NewReconciliationController(logger *zap.Logger, reconciliationUsecase contracts.ReconciliationUsecase) *ReconciliationController {
	onceReconciliationController.Do(func() {
		instance := &ReconciliationController{
			Log:                   logger,
			ReconciliationUsecase: reconciliationUsecase,
		}
		reconciliationControllerInstance = instance
	})
	return reconciliationControllerInstance
}

func (ctrl *ReconciliationController) RunPeriodic(w http.ResponseWriter, r *http.Request) {
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}
	ctrl.Log.Info("ReconciliationController.RunPeriodic called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
	)

	request := new(requests.PeriodicReconciliationRequest)
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrCannotParseJSON(err))
		return
	}
	if err := utils.ValidateStruct(request); err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	windowFrom, err := time.Parse(requests.TimestampLayout, request.WindowFrom)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrInputValidation(err))
		return
	}
	windowTo, err := time.Parse(requests.TimestampLayout, request.WindowTo)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrInputValidation(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	result, err := ctrl.ReconciliationUsecase.RunPeriodic(ctx, &contracts.PeriodicRunInput{
		CaseType:   models.CaseType(request.CaseType),
		WindowFrom: windowFrom,
		WindowTo:   windowTo,
		ChunkSize:  request.ChunkSize,
	})
	if err != nil {
		ctrl.Log.Error("ReconciliationController.RunPeriodic error from usecase",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingCaseTypeKey, request.CaseType),
			zap.Error(err),
		)
		if err == context.DeadlineExceeded {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrServerDeadlineExceeded(err))
			return
		}
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseReconciliationComplete, responses.ReconciliationRunResponse{
		CorrelationID: result.CorrelationID,
		FrameCount:    result.FrameCount,
		DetailCount:   result.DetailCount,
		ArchiveObject: result.ArchiveObject,
	})
}

func (ctrl *ReconciliationController) RunConsistency(w http.ResponseWriter, r *http.Request) {
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}
	ctrl.Log.Info("ReconciliationController.RunConsistency called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
	)

	request := new(requests.ConsistencyReconciliationRequest)
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrCannotParseJSON(err))
		return
	}
	if err := utils.ValidateStruct(request); err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	referenceDate, err := time.Parse(requests.DateLayout, request.ReferenceDate)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrInputValidation(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
	defer cancel()

	result, err := ctrl.ReconciliationUsecase.RunConsistency(ctx, &contracts.ConsistencyRunInput{
		CaseType:      models.CaseType(request.CaseType),
		ReferenceDate: referenceDate,
	})
	if err != nil {
		ctrl.Log.Error("ReconciliationController.RunConsistency error from usecase",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingCaseTypeKey, request.CaseType),
			zap.Error(err),
		)
		if err == context.DeadlineExceeded {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrServerDeadlineExceeded(err))
			return
		}
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseReconciliationComplete, responses.ReconciliationRunResponse{
		CorrelationID: result.CorrelationID,
		FrameCount:    result.FrameCount,
		DetailCount:   result.DetailCount,
		ArchiveObject: result.ArchiveObject,
	})
}
