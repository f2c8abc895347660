package controllers

import (
	"net/http"

	"github.com/apexmarkets/crm-backend/api/middleware"
	"github.com/apexmarkets/crm-backend/api/responses"
	"github.com/apexmarkets/crm-backend/api/validators"
	"github.com/apexmarkets/crm-backend/internal/paymentmethods"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

type createPaymentMethodRequest struct {
	Currency string  `json:"currency" validate:"required"`
	Chain    *string `json:"chain,omitempty"`
	Address  string  `json:"address" validate:"required"`
	Label    *string `json:"label,omitempty"`
}

func PaymentMethodCreate(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPaymentMethodRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := svc.Create(r.Context(), middleware.UserIDFromContext(r.Context()), paymentmethods.CreateInput{
			Currency: req.Currency,
			Chain:    req.Chain,
			Address:  req.Address,
			Label:    req.Label,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPaymentMethodView(method))
	}
}

func PaymentMethodList(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]paymentMethodView, 0, len(list))
		for i := range list {
			views = append(views, newPaymentMethodView(&list[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

func PaymentMethodDelete(svc paymentmethods.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "paymentMethodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if err := svc.Delete(ctx, id, middleware.UserIDFromContext(ctx), middleware.IsAdmin(ctx)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
