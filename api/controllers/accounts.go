package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/apexmarkets/crm-backend/api/middleware"
	"github.com/apexmarkets/crm-backend/api/responses"
	"github.com/apexmarkets/crm-backend/api/validators"
	"github.com/apexmarkets/crm-backend/internal/accounts"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

type createAccountRequest struct {
	Login    int64  `json:"login" validate:"required,gt=0"`
	Group    string `json:"group" validate:"required"`
	Leverage int    `json:"leverage,omitempty"`
	Currency string `json:"currency,omitempty"`
	IsDemo   bool   `json:"is_demo,omitempty"`
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" must be a valid uuid")
	}
	return id, nil
}

func AccountCreate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAccountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Create(r.Context(), accounts.CreateAccountInput{
			UserID:   middleware.UserIDFromContext(r.Context()),
			Login:    req.Login,
			Group:    req.Group,
			Leverage: req.Leverage,
			Currency: req.Currency,
			IsDemo:   req.IsDemo,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newAccountView(account))
	}
}

func AccountList(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]accountView, 0, len(list))
		for i := range list {
			views = append(views, newAccountView(&list[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

func AccountGet(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		account, err := svc.Get(ctx, id, middleware.UserIDFromContext(ctx), middleware.IsAdmin(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAccountView(account))
	}
}
