package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexmarkets/crm-backend/api/middleware"
	"github.com/apexmarkets/crm-backend/api/responses"
	"github.com/apexmarkets/crm-backend/api/validators"
	"github.com/apexmarkets/crm-backend/internal/withdrawals"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

type createWithdrawalRequest struct {
	TradingAccountID uuid.UUID `json:"trading_account_id" validate:"required"`
	PaymentMethodID  uuid.UUID `json:"payment_method_id" validate:"required"`
	Amount           string    `json:"amount" validate:"required"`
	Currency         string    `json:"currency,omitempty"`
}

func WithdrawalCreate(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string"))
			return
		}

		withdrawal, err := svc.Create(r.Context(), middleware.UserIDFromContext(r.Context()), withdrawals.CreateInput{
			TradingAccountID: req.TradingAccountID,
			PaymentMethodID:  req.PaymentMethodID,
			Amount:           amount,
			Currency:         req.Currency,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWithdrawalView(withdrawal))
	}
}

func WithdrawalList(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
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

		views := make([]withdrawalView, 0, len(list))
		for i := range list {
			views = append(views, newWithdrawalView(&list[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

func WithdrawalGet(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		withdrawal, err := svc.Get(ctx, id, middleware.UserIDFromContext(ctx), middleware.IsAdmin(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWithdrawalView(withdrawal))
	}
}

func WithdrawalCancel(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		withdrawal, err := svc.Cancel(ctx, id, middleware.UserIDFromContext(ctx), middleware.IsAdmin(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWithdrawalView(withdrawal))
	}
}
