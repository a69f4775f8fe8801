package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"disbursement-service/internal/app/contracts"
	"disbursement-service/internal/pkg/constvars"
	"disbursement-service/internal/pkg/dto/requests"
	"disbursement-service/internal/pkg/dto/responses"
	"disbursement-service/internal/pkg/exceptions"
	"disbursement-service/internal/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type DisbursementController struct {
	Log                 *zap.Logger
	DisbursementUsecase contracts.DisbursementUsecase
}

var (
	disbursementControllerInstance *DisbursementController
	onceDisbursementController     sync.Once
)

func NewDisbursementController(logger *zap.Logger, disbursementUsecase contracts.DisbursementUsecase) *DisbursementController {
	onceDisbursementController.Do(func() {
		instance := &DisbursementController{
			Log:                 logger,
			DisbursementUsecase: disbursementUsecase,
		}
		disbursementControllerInstance = instance
	})
	return disbursementControllerInstance
}

// SubmitDecision is the synchronous intake for callers that cannot use the
// decision-ready queue. Same semantics as the queue path: duplicates and
// conflicts come back as explicit outcomes.
func (ctrl *DisbursementController) SubmitDecision(w http.ResponseWriter, r *http.Request) {
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		ctrl.Log.Error("DisbursementController.SubmitDecision requestID not found in context")
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}
	ctrl.Log.Info("DisbursementController.SubmitDecision called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
	)

	decision := new(requests.PaymentDecision)
	if err := json.NewDecoder(r.Body).Decode(&decision); err != nil {
		ctrl.Log.Error("DisbursementController.SubmitDecision error decoding JSON",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrCannotParseJSON(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	outcome, err := ctrl.DisbursementUsecase.SubmitInstruction(ctx, decision)
	if err != nil {
		ctrl.Log.Error("DisbursementController.SubmitDecision error from usecase",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingDecisionIDKey, decision.DecisionID),
			zap.Error(err),
		)
		if err == context.DeadlineExceeded {
			utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrServerDeadlineExceeded(err))
			return
		}
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	response := &responses.SubmitOutcomeResponse{
		Outcome:            string(outcome.Kind),
		ConflictingLineIDs: outcome.ConflictingLineIDs,
	}
	if outcome.Instruction != nil {
		response.Instruction = responses.NewInstructionResponse(outcome.Instruction)
	}

	ctrl.Log.Info("DisbursementController.SubmitDecision succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingDecisionIDKey, decision.DecisionID),
		zap.String(constvars.LoggingOutcomeKey, string(outcome.Kind)),
	)

	switch outcome.Kind {
	case contracts.SubmitCreated:
		utils.BuildSuccessResponse(w, constvars.StatusCreated, constvars.ResponseInstructionCreated, response)
	case contracts.SubmitAlreadyExists:
		utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseInstructionExists, response)
	case contracts.SubmitDispatchFailed:
		utils.BuildSuccessResponse(w, constvars.StatusAccepted, constvars.ResponseInstructionPendingResweep, response)
	case contracts.SubmitLineConflict:
		utils.BuildSuccessResponse(w, constvars.StatusConflict, constvars.ResponseLineConflict, response)
	case contracts.SubmitNoPriorInstruction:
		utils.BuildSuccessResponse(w, constvars.StatusUnprocessableEntity, constvars.ResponseNoPriorInstruction, response)
	default:
		utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseSuccess, response)
	}
}

func (ctrl *DisbursementController) GetInstruction(w http.ResponseWriter, r *http.Request) {
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}

	decisionID := chi.URLParam(r, "decisionID")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	instruction, err := ctrl.DisbursementUsecase.GetInstruction(ctx, decisionID)
	if err != nil {
		ctrl.Log.Error("DisbursementController.GetInstruction error from usecase",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingDecisionIDKey, decisionID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseSuccess, responses.NewInstructionResponse(instruction))
}

func (ctrl *DisbursementController) ListCaseInstructions(w http.ResponseWriter, r *http.Request) {
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}

	caseID := chi.URLParam(r, "caseID")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	instructions, err := ctrl.DisbursementUsecase.ListCaseInstructions(ctx, caseID)
	if err != nil {
		ctrl.Log.Error("DisbursementController.ListCaseInstructions error from usecase",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingCaseIDKey, caseID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	instructionResponses := make([]*responses.InstructionResponse, 0, len(instructions))
	for i := range instructions {
		instructionResponses = append(instructionResponses, responses.NewInstructionResponse(&instructions[i]))
	}
	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseSuccess, instructionResponses)
}

// ForceAccept is the manual recovery endpoint for instructions the ledger
// booked but never acknowledged.
func (ctrl *DisbursementController) ForceAccept(w http.ResponseWriter, r *http.Request) {
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}

	decisionID := chi.URLParam(r, "decisionID")
	ctrl.Log.Info("DisbursementController.ForceAccept called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingDecisionIDKey, decisionID),
	)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	outcome, err := ctrl.DisbursementUsecase.ForceAccept(ctx, decisionID)
	if err != nil {
		ctrl.Log.Error("DisbursementController.ForceAccept error from usecase",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingDecisionIDKey, decisionID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	if outcome.Kind == contracts.ReceiptInvalidSequence {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.BuildNewCustomError(
			nil,
			constvars.StatusConflict,
			"Instruction already has a final status",
			"FORCE_ACCEPT_ON_TERMINAL_INSTRUCTION",
		))
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseReceiptApplied, responses.NewInstructionResponse(outcome.Instruction))
}

// Resweep re-dispatches persisted instructions that never reached the queue.
func (ctrl *DisbursementController) Resweep(w http.ResponseWriter, r *http.Request) {
	requestID, ok := r.Context().Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if !ok || requestID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingRequestID(nil))
		return
	}
	ctrl.Log.Info("DisbursementController.Resweep called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
	)

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	sent, err := ctrl.DisbursementUsecase.ResweepUnsent(ctx)
	if err != nil {
		ctrl.Log.Error("DisbursementController.Resweep error from usecase",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		utils.BuildErrorResponse(ctrl.Log, w, err)
		return
	}

	utils.BuildSuccessResponse(w, constvars.StatusOK, constvars.ResponseResweepComplete, responses.ResweepResponse{Redispatched: sent})
}
