package exceptions

import (
	"disbursement-service/internal/pkg/constvars"
	"fmt"
)

var (
	// ErrUnknownCaseType is a business-rule violation: a case-type without an
	// explicit classification mapping must never be defaulted.
	ErrUnknownCaseType = func(caseType string) *CustomError {
		return BuildNewCustomError(fmt.Errorf("no classification code mapped for case type %q", caseType),
			constvars.StatusUnprocessableEntity, constvars.ErrClientCaseTypeNotSupported, constvars.ErrDevUnknownCaseType)
	}
	ErrTerminationWithoutPrior = func(caseID string) *CustomError {
		return BuildNewCustomError(fmt.Errorf("case %s has no prior instruction to terminate", caseID),
			constvars.StatusUnprocessableEntity, constvars.ErrClientCannotProcessRequest, constvars.ErrDevTerminationWithoutPrior)
	}
	ErrInstructionNotFound = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusNotFound, constvars.ErrClientInstructionNotFound, constvars.ErrDevInstructionNotFound)
	}

	ErrWireMarshal = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusInternalServerError, constvars.ErrClientSomethingWrongWithApplication, constvars.ErrDevWireMarshal)
	}
	ErrWireUnmarshal = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusBadRequest, constvars.ErrClientCannotProcessRequest, constvars.ErrDevWireUnmarshal)
	}

	ErrReconciliationRun = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusInternalServerError, constvars.ErrClientReconciliationFailed, constvars.ErrDevReconciliationRun)
	}
	ErrArchiveUpload = func(err error) *CustomError {
		return BuildNewCustomError(err, constvars.StatusInternalServerError, constvars.ErrClientSomethingWrongWithApplication, constvars.ErrDevArchiveUpload)
	}
)
