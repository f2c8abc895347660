package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexmarkets/crm-backend/api/middleware"
	"github.com/apexmarkets/crm-backend/api/responses"
	"github.com/apexmarkets/crm-backend/api/validators"
	"github.com/apexmarkets/crm-backend/internal/deposits"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

type createDepositRequest struct {
	TradingAccountID uuid.UUID `json:"trading_account_id" validate:"required"`
	Amount           string    `json:"amount" validate:"required"`
	Currency         string    `json:"currency,omitempty"`
}

func DepositCreate(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDepositRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string"))
			return
		}

		deposit, err := svc.Create(r.Context(), deposits.CreateDepositInput{
			UserID:           middleware.UserIDFromContext(r.Context()),
			TradingAccountID: req.TradingAccountID,
			Amount:           amount,
			Currency:         req.Currency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDepositView(deposit))
	}
}

func DepositList(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDepositViews(list))
	}
}

func DepositGet(svc deposits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "depositId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		deposit, err := svc.Get(ctx, id, deposits.Actor{
			UserID:  middleware.UserIDFromContext(ctx),
			IsAdmin: middleware.IsAdmin(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDepositView(deposit))
	}
}
