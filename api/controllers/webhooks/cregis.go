package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/apexmarkets/crm-backend/api/responses"
	cregiswebhook "github.com/apexmarkets/crm-backend/internal/webhooks/cregis"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

type cregisWebhookService interface {
	HandleCallback(ctx context.Context, body []byte) (*cregiswebhook.Result, error)
}

// maxCallbackBody bounds the gateway payload read.
const maxCallbackBody = 1 << 20

// CregisWebhook receives payment gateway callbacks. The engine acknowledges
// every recorded delivery; unverifiable signatures and storage errors
// produce a non-2xx so the gateway keeps retrying deliveries we could not
// trust or could not durably record.
func CregisWebhook(svc cregisWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		result, err := svc.HandleCallback(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := map[string]any{
			"status": result.Status,
		}
		if result.DepositID != uuid.Nil {
			payload["deposit_id"] = result.DepositID
		}
		responses.WriteSuccess(w, payload)
	}
}
