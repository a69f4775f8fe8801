package routers

import (
	"disbursement-service/internal/app/delivery/http/controllers"

	"github.com/go-chi/chi/v5"
)

func attachDisbursementRouter(router chi.Router, ctrl *controllers.DisbursementController) {
	router.Post("/decisions", ctrl.SubmitDecision)
	router.Post("/resweep", ctrl.Resweep)
	router.Get("/instructions/{decisionID}", ctrl.GetInstruction)
	router.Post("/instructions/{decisionID}/force-accept", ctrl.ForceAccept)
	router.Get("/cases/{caseID}/instructions", ctrl.ListCaseInstructions)
}
