package cregiswebhook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/apexmarkets/crm-backend/internal/deposits"
	"github.com/apexmarkets/crm-backend/internal/ledger"
	"github.com/apexmarkets/crm-backend/pkg/config"
	"github.com/apexmarkets/crm-backend/pkg/cregis"
	"github.com/apexmarkets/crm-backend/pkg/db/models"
	"github.com/apexmarkets/crm-backend/pkg/enums"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
	"github.com/apexmarkets/crm-backend/pkg/metrics"
)

// creditedByMarker stamps ledger rows credited by the callback path so a
// manual back-office credit is distinguishable in the books.
const creditedByMarker = "cregis-webhook"

// ErrInvalidSignature maps to a 401. Business outcomes are always
// acknowledged so the gateway stops retrying deliveries we have durably
// recorded; transient storage errors return non-2xx instead, which keeps
// the gateway redelivering until the write lands.
var ErrInvalidSignature = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback signature")

type balanceCrediter interface {
	Credit(ctx context.Context, login int64, amount decimal.Decimal, comment string) error
}

type accountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.TradingAccount, error)
}

type ServiceParams struct {
	DepositsRepo deposits.Repository
	LedgerRepo   ledger.Repository
	Accounts     accountFinder
	Crediter     balanceCrediter
	Guard        *ReplayGuard
	Metrics      *metrics.WebhookMetrics
	Logger       *logger.Logger
	Config       config.CregisConfig
}

// Service is the callback reconciliation engine. Deliveries arrive at-least
// once and out of order; every mutation here is a conditional update keyed on
// the current state, so replays and races collapse into no-ops instead of
// double-applied money movements.
type Service struct {
	deposits   deposits.Repository
	ledger     ledger.Repository
	accounts   accountFinder
	crediter   balanceCrediter
	guard      *ReplayGuard
	metrics    *metrics.WebhookMetrics
	logger     *logger.Logger
	secret     string
	retryAfter time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DepositsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "deposits repo required")
	}
	if params.LedgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account finder required")
	}
	if params.Crediter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "balance crediter required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Config.APIKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signing secret required")
	}
	retryAfter := params.Config.CreditRetryAfter
	if retryAfter <= 0 {
		retryAfter = 5 * time.Minute
	}
	return &Service{
		deposits:   params.DepositsRepo,
		ledger:     params.LedgerRepo,
		accounts:   params.Accounts,
		crediter:   params.Crediter,
		guard:      params.Guard,
		metrics:    params.Metrics,
		logger:     params.Logger,
		secret:     params.Config.APIKey,
		retryAfter: retryAfter,
	}, nil
}

// Result reports what a delivery did. Status is one of the resultXXX
// constants; the controller acknowledges every result with 200.
type Result struct {
	DepositID uuid.UUID
	Outcome   Outcome
	Status    string
}

const (
	resultCompleted      = "completed"
	resultRejected       = "rejected"
	resultDuplicate      = "duplicate"
	resultConflict       = "conflict"
	resultUnknownPayment = "unknown_payment"
	resultIgnored        = "ignored"
	resultCreditDeferred = "credit_deferred"
	resultCreditBlocked  = "credit_blocked"
	resultCreditInFlight = "credit_in_flight"
)

// HandleCallback verifies, deduplicates, and applies one gateway delivery.
// Signature failures and transient storage errors come back as errors for a
// non-2xx answer; every business outcome resolves to a Result so the
// transport layer can acknowledge the delivery.
func (s *Service) HandleCallback(ctx context.Context, body []byte) (*Result, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveDuration("cregis", time.Since(start))
	}()

	params, err := cregis.ParamsFromJSON(body)
	if err != nil {
		s.metrics.IncCallback("cregis", "malformed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "parse callback body")
	}
	payload := payloadFromParams(params)
	if payload.Sign == "" || !cregis.Verify(params, s.secret, payload.Sign) {
		s.metrics.IncCallback("cregis", "bad_signature")
		s.logger.Warn(s.logger.WithField(ctx, "cregis_id", payload.CregisID), "callback signature rejected")
		return nil, ErrInvalidSignature
	}

	dedupeID := payload.CregisID
	if dedupeID == "" {
		dedupeID = payload.OrderID
	}
	if s.guard != nil && dedupeID != "" {
		seen, guardErr := s.guard.CheckAndMark(ctx, dedupeID, payload.Status)
		if guardErr != nil {
			// Redis being down must not block reconciliation.
			s.logger.Warn(ctx, "replay guard unavailable, falling through to database")
		} else if seen {
			s.metrics.IncCallback("cregis", resultDuplicate)
			return &Result{Outcome: MapStatus(payload.Status), Status: resultDuplicate}, nil
		}
	}

	deposit, err := s.findDeposit(ctx, payload)
	if err != nil {
		s.forgetReplayMark(ctx, dedupeID, payload.Status)
		return nil, err
	}
	if deposit == nil {
		s.metrics.IncCallback("cregis", resultUnknownPayment)
		s.logger.Warn(s.logger.WithFields(ctx, map[string]any{
			"cregis_id": payload.CregisID,
			"order_id":  payload.OrderID,
		}), "callback for unknown payment")
		return &Result{Outcome: MapStatus(payload.Status), Status: resultUnknownPayment}, nil
	}

	ctx = s.logger.WithDepositID(ctx, deposit.ID.String())
	outcome := MapStatus(payload.Status)

	var result *Result
	switch outcome {
	case OutcomeSuccess:
		result, err = s.applySuccess(ctx, deposit, payload)
	case OutcomeFailure:
		result, err = s.applyFailure(ctx, deposit, payload)
	default:
		s.metrics.IncCallback("cregis", resultIgnored)
		s.logger.Info(s.logger.WithField(ctx, "gateway_status", payload.Status), "unrecognized gateway status, acknowledged without changes")
		result = &Result{DepositID: deposit.ID, Outcome: outcome, Status: resultIgnored}
	}
	if err != nil {
		// The delivery was not fully applied; clear the mark so the gateway's
		// redelivery reaches the database instead of being answered from Redis.
		s.forgetReplayMark(ctx, dedupeID, payload.Status)
		return nil, err
	}

	// A deferred credit should be retried on the gateway's next replay, not
	// swallowed by the dedupe shim.
	if result.Status == resultCreditDeferred || result.Status == resultCreditBlocked {
		s.forgetReplayMark(ctx, dedupeID, payload.Status)
	}
	return result, nil
}

func (s *Service) forgetReplayMark(ctx context.Context, dedupeID, status string) {
	if s.guard == nil || dedupeID == "" {
		return
	}
	if err := s.guard.Forget(ctx, dedupeID, status); err != nil {
		s.logger.Warn(ctx, "failed to clear replay mark")
	}
}

func (s *Service) findDeposit(ctx context.Context, payload Payload) (*models.Deposit, error) {
	if payload.CregisID != "" {
		deposit, err := s.deposits.FindByCregisID(ctx, payload.CregisID)
		if err == nil {
			return deposit, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup deposit by cregis id")
		}
	}
	if payload.OrderID != "" {
		deposit, err := s.deposits.FindByOrderID(ctx, payload.OrderID)
		if err == nil {
			return deposit, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup deposit by order id")
		}
	}
	return nil, nil
}

func (s *Service) applySuccess(ctx context.Context, deposit *models.Deposit, payload Payload) (*Result, error) {
	now := time.Now().UTC()

	updates := map[string]any{
		"state":          enums.DepositStateApproved,
		"approved_at":    now,
		"gateway_status": payload.Status,
		"updated_at":     now,
	}
	if deposit.CregisID == nil && payload.CregisID != "" {
		updates["cregis_id"] = payload.CregisID
	}
	if payload.PayAmount != "" {
		if paid, err := decimal.NewFromString(payload.PayAmount); err == nil {
			updates["paid_amount"] = paid
		}
	}
	if payload.PayCurrency != "" {
		updates["paid_currency"] = payload.PayCurrency
	}
	if payload.Chain != "" {
		updates["chain"] = payload.Chain
	}
	if payload.TxID != "" {
		updates["tx_hash"] = payload.TxID
	}
	if payload.FromAddress != "" {
		updates["from_address"] = payload.FromAddress
	}
	if payload.ToAddress != "" {
		updates["to_address"] = payload.ToAddress
	}

	applied, err := s.deposits.UpdateStateIf(ctx, deposit.ID, enums.DepositStatePending, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve deposit")
	}
	if !applied {
		current, err := s.deposits.FindByID(ctx, deposit.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload deposit")
		}
		switch current.State {
		case enums.DepositStateCompleted:
			s.metrics.IncCallback("cregis", resultDuplicate)
			return &Result{DepositID: deposit.ID, Outcome: OutcomeSuccess, Status: resultDuplicate}, nil
		case enums.DepositStateRejected:
			s.metrics.IncCallback("cregis", resultConflict)
			s.logger.Warn(ctx, "success callback for rejected deposit, not crediting")
			return &Result{DepositID: deposit.ID, Outcome: OutcomeSuccess, Status: resultConflict}, nil
		}
		// Already approved: a previous delivery got the transition but the
		// credit may still be outstanding, so fall through and retry it.
	}

	return s.creditDeposit(ctx, deposit.ID, now)
}

// creditDeposit drives the at-most-once MT5 credit. The ledger row's credit
// marker serializes attempts across replicas; losing the race or hitting a
// still-fresh in-flight claim acknowledges without a second credit.
func (s *Service) creditDeposit(ctx context.Context, depositID uuid.UUID, now time.Time) (*Result, error) {
	deposit, err := s.deposits.FindByID(ctx, depositID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload deposit")
	}

	// The gateway reports what actually arrived on chain; that is the amount
	// that moves, not the amount the client asked for. Fall back to the
	// requested amount for gateways that omit pay_amount.
	amount := deposit.Amount
	currency := deposit.Currency
	if deposit.PaidAmount != nil && deposit.PaidAmount.IsPositive() {
		amount = *deposit.PaidAmount
		if deposit.PaidCurrency != nil && *deposit.PaidCurrency != "" {
			currency = *deposit.PaidCurrency
		}
	}

	comment := "deposit " + deposit.ID.String()
	if err := s.ledger.CreateIfAbsent(ctx, &models.LedgerTransaction{
		ID:               uuid.New(),
		DepositID:        deposit.ID,
		UserID:           deposit.UserID,
		TradingAccountID: deposit.TradingAccountID,
		Type:             "deposit",
		Status:           enums.LedgerStatusApproved,
		Amount:           amount,
		Currency:         currency,
		CreditStatus:     enums.CreditStatusPending,
		Comment:          &comment,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record ledger transaction")
	}

	claimed, err := s.ledger.ClaimCredit(ctx, deposit.ID, now, s.retryAfter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim credit")
	}
	if !claimed {
		txn, err := s.ledger.FindByDepositID(ctx, deposit.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload ledger transaction")
		}
		if txn.CreditStatus == enums.CreditStatusDone {
			// Credited by an earlier delivery; make sure the deposit record
			// caught up before acknowledging.
			if err := s.completeDeposit(ctx, deposit.ID, now); err != nil {
				return nil, err
			}
			s.metrics.IncCallback("cregis", resultDuplicate)
			return &Result{DepositID: deposit.ID, Outcome: OutcomeSuccess, Status: resultDuplicate}, nil
		}
		s.metrics.IncCallback("cregis", resultCreditInFlight)
		s.logger.Info(ctx, "credit already in flight, acknowledging")
		return &Result{DepositID: deposit.ID, Outcome: OutcomeSuccess, Status: resultCreditInFlight}, nil
	}

	account, err := s.accounts.FindByID(ctx, deposit.TradingAccountID)
	if err != nil {
		// Claim stays in flight; the retry window releases it for the next
		// delivery.
		s.metrics.IncCreditFailure("cregis", "account_lookup")
		s.logger.Error(ctx, "trading account lookup failed, credit deferred", err)
		return &Result{DepositID: deposit.ID, Outcome: OutcomeSuccess, Status: resultCreditDeferred}, nil
	}

	if err := s.crediter.Credit(ctx, account.Login, amount, comment); err != nil {
		coded := pkgerrors.As(err)
		if coded != nil && coded.Code() == pkgerrors.CodeStateConflict {
			s.metrics.IncCreditFailure("cregis", "rejected")
			s.logger.Error(ctx, "trading platform refused credit, manual review required", err)
			return &Result{DepositID: deposit.ID, Outcome: OutcomeSuccess, Status: resultCreditBlocked}, nil
		}
		s.metrics.IncCreditFailure("cregis", "unavailable")
		s.logger.Error(ctx, "trading platform unavailable, credit deferred", err)
		return &Result{DepositID: deposit.ID, Outcome: OutcomeSuccess, Status: resultCreditDeferred}, nil
	}

	if _, err := s.ledger.MarkCredited(ctx, deposit.ID, creditedByMarker, account.Login, now); err != nil {
		// The balance moved but the marker did not. Surface loudly: the stale
		// claim will be reclaimed, and only this log ties the two together.
		s.logger.Error(ctx, "credit applied but ledger marker update failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark ledger credited")
	}
	if err := s.completeDeposit(ctx, deposit.ID, now); err != nil {
		return nil, err
	}

	s.metrics.IncCallback("cregis", resultCompleted)
	s.logger.Info(s.logger.WithField(ctx, "login", account.Login), "deposit credited and completed")
	return &Result{DepositID: deposit.ID, Outcome: OutcomeSuccess, Status: resultCompleted}, nil
}

func (s *Service) completeDeposit(ctx context.Context, depositID uuid.UUID, now time.Time) error {
	_, err := s.deposits.UpdateStateIf(ctx, depositID, enums.DepositStateApproved, map[string]any{
		"state":        enums.DepositStateCompleted,
		"completed_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete deposit")
	}
	return nil
}

func (s *Service) applyFailure(ctx context.Context, deposit *models.Deposit, payload Payload) (*Result, error) {
	now := time.Now().UTC()

	applied, err := s.deposits.UpdateStateIf(ctx, deposit.ID, enums.DepositStatePending, map[string]any{
		"state":          enums.DepositStateRejected,
		"rejected_at":    now,
		"reject_reason":  payload.Status,
		"gateway_status": payload.Status,
		"updated_at":     now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject deposit")
	}
	if applied {
		if err := s.ledger.UpdateStatus(ctx, deposit.ID, enums.LedgerStatusRejected); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reject ledger transaction")
		}
		s.metrics.IncCallback("cregis", resultRejected)
		s.logger.Info(s.logger.WithField(ctx, "gateway_status", payload.Status), "deposit rejected by gateway")
		return &Result{DepositID: deposit.ID, Outcome: OutcomeFailure, Status: resultRejected}, nil
	}

	current, err := s.deposits.FindByID(ctx, deposit.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload deposit")
	}
	switch current.State {
	case enums.DepositStateRejected:
		s.metrics.IncCallback("cregis", resultDuplicate)
		return &Result{DepositID: deposit.ID, Outcome: OutcomeFailure, Status: resultDuplicate}, nil
	default:
		// Paid or crediting already happened; a late failure never claws
		// money back.
		s.metrics.IncCallback("cregis", resultConflict)
		s.logger.Warn(s.logger.WithField(ctx, "state", string(current.State)), "failure callback after payment progressed, ignoring")
		return &Result{DepositID: deposit.ID, Outcome: OutcomeFailure, Status: resultConflict}, nil
	}
}
