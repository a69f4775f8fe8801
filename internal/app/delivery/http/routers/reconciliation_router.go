package routers

import (
	"disbursement-service/internal/app/delivery/http/controllers"

	"github.com/go-chi/chi/v5"
)

func attachReconciliationRouter(router chi.Router, ctrl *controllers.ReconciliationController) {
	router.Post("/periodic", ctrl.RunPeriodic)
	router.Post("/consistency", ctrl.RunConsistency)
}
