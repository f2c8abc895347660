package controllers

import (
	"net/http"

	"github.com/apexmarkets/crm-backend/api/middleware"
	"github.com/apexmarkets/crm-backend/api/responses"
	"github.com/apexmarkets/crm-backend/api/validators"
	"github.com/apexmarkets/crm-backend/internal/ledger"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

// LedgerList is read-only: ledger writes belong exclusively to the payment
// callback path.
func LedgerList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByUser(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]ledgerView, 0, len(list))
		for i := range list {
			views = append(views, newLedgerView(&list[i]))
		}
		responses.WriteSuccess(w, views)
	}
}
