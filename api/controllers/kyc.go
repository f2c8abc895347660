package controllers

import (
	"net/http"

	"github.com/apexmarkets/crm-backend/api/middleware"
	"github.com/apexmarkets/crm-backend/api/responses"
	"github.com/apexmarkets/crm-backend/api/validators"
	"github.com/apexmarkets/crm-backend/internal/kyc"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

type submitKYCRequest struct {
	DocumentType   string  `json:"document_type" validate:"required"`
	DocumentNumber string  `json:"document_number" validate:"required"`
	DocumentURL    *string `json:"document_url,omitempty"`
}

func KYCGet(svc kyc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newKYCView(profile))
	}
}

func KYCSubmit(svc kyc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitKYCRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Submit(r.Context(), middleware.UserIDFromContext(r.Context()), kyc.SubmitInput{
			DocumentType:   req.DocumentType,
			DocumentNumber: req.DocumentNumber,
			DocumentURL:    req.DocumentURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newKYCView(profile))
	}
}
