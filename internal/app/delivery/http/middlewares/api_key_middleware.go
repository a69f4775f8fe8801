package middlewares

import (
	"net/http"

	"disbursement-service/internal/pkg/exceptions"
	"disbursement-service/internal/pkg/utils"
)

const HeaderAPIKey = "x-api-key"

// APIKeyAuth guards the operational surface. Every caller is a backend
// collaborator or an operator, so the key is mandatory.
func (m *Middlewares) APIKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(HeaderAPIKey)

		if apiKey == "" {
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrAPIKeyRequired(nil))
			return
		}
		if apiKey != m.InternalConfig.App.APIKey {
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrInvalidAPIKey(nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}
