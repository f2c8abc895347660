package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apexmarkets/crm-backend/pkg/db/models"
)

// View structs shape what the API returns; models never serialize directly
// so password hashes and internal columns cannot leak.

type userView struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       *string    `json:"phone,omitempty"`
	Country     *string    `json:"country,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newUserView(user *models.User) userView {
	return userView{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Phone:       user.Phone,
		Country:     user.Country,
		Role:        string(user.Role),
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

type accountView struct {
	ID       uuid.UUID `json:"id"`
	Login    int64     `json:"login"`
	Platform string    `json:"platform"`
	Group    string    `json:"group"`
	Leverage int       `json:"leverage"`
	Currency string    `json:"currency"`
	IsDemo   bool      `json:"is_demo"`
	IsActive bool      `json:"is_active"`
}

func newAccountView(account *models.TradingAccount) accountView {
	return accountView{
		ID:       account.ID,
		Login:    account.Login,
		Platform: account.Platform,
		Group:    account.Group,
		Leverage: account.Leverage,
		Currency: account.Currency,
		IsDemo:   account.IsDemo,
		IsActive: account.IsActive,
	}
}

type depositView struct {
	ID               uuid.UUID        `json:"id"`
	TradingAccountID uuid.UUID        `json:"trading_account_id"`
	OrderID          string           `json:"order_id"`
	CregisID         *string          `json:"cregis_id,omitempty"`
	State            string           `json:"state"`
	Amount           decimal.Decimal  `json:"amount"`
	Currency         string           `json:"currency"`
	PaidAmount       *decimal.Decimal `json:"paid_amount,omitempty"`
	PaidCurrency     *string          `json:"paid_currency,omitempty"`
	Chain            *string          `json:"chain,omitempty"`
	TxHash           *string          `json:"tx_hash,omitempty"`
	FromAddress      *string          `json:"from_address,omitempty"`
	ToAddress        *string          `json:"to_address,omitempty"`
	CheckoutURL      *string          `json:"checkout_url,omitempty"`
	DepositAddress   *string          `json:"deposit_address,omitempty"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

func newDepositView(deposit *models.Deposit) depositView {
	return depositView{
		ID:               deposit.ID,
		TradingAccountID: deposit.TradingAccountID,
		OrderID:          deposit.OrderID,
		CregisID:         deposit.CregisID,
		State:            string(deposit.State),
		Amount:           deposit.Amount,
		Currency:         deposit.Currency,
		PaidAmount:       deposit.PaidAmount,
		PaidCurrency:     deposit.PaidCurrency,
		Chain:            deposit.Chain,
		TxHash:           deposit.TxHash,
		FromAddress:      deposit.FromAddress,
		ToAddress:        deposit.ToAddress,
		CheckoutURL:      deposit.CheckoutURL,
		DepositAddress:   deposit.DepositAddress,
		ExpiresAt:        deposit.ExpiresAt,
		CreatedAt:        deposit.CreatedAt,
	}
}

func newDepositViews(deposits []models.Deposit) []depositView {
	views := make([]depositView, 0, len(deposits))
	for i := range deposits {
		views = append(views, newDepositView(&deposits[i]))
	}
	return views
}

type withdrawalView struct {
	ID               uuid.UUID       `json:"id"`
	TradingAccountID uuid.UUID       `json:"trading_account_id"`
	PaymentMethodID  uuid.UUID       `json:"payment_method_id"`
	Status           string          `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	RejectReason     *string         `json:"reject_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func newWithdrawalView(withdrawal *models.Withdrawal) withdrawalView {
	return withdrawalView{
		ID:               withdrawal.ID,
		TradingAccountID: withdrawal.TradingAccountID,
		PaymentMethodID:  withdrawal.PaymentMethodID,
		Status:           string(withdrawal.Status),
		Amount:           withdrawal.Amount,
		Currency:         withdrawal.Currency,
		RejectReason:     withdrawal.RejectReason,
		CreatedAt:        withdrawal.CreatedAt,
	}
}

type kycView struct {
	Status       string     `json:"status"`
	DocumentType *string    `json:"document_type,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	RejectReason *string    `json:"reject_reason,omitempty"`
}

func newKYCView(profile *models.KYCProfile) kycView {
	return kycView{
		Status:       string(profile.Status),
		DocumentType: profile.DocumentType,
		SubmittedAt:  profile.SubmittedAt,
		RejectReason: profile.RejectReason,
	}
}

type paymentMethodView struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	Kind      string    `json:"kind"`
	Currency  string    `json:"currency"`
	Chain     *string   `json:"chain,omitempty"`
	Address   string    `json:"address"`
	Label     *string   `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newPaymentMethodView(method *models.PaymentMethod) paymentMethodView {
	return paymentMethodView{
		ID:        method.ID,
		Status:    string(method.Status),
		Kind:      method.Kind,
		Currency:  method.Currency,
		Chain:     method.Chain,
		Address:   method.Address,
		Label:     method.Label,
		CreatedAt: method.CreatedAt,
	}
}

type ledgerView struct {
	ID               uuid.UUID       `json:"id"`
	DepositID        uuid.UUID       `json:"deposit_id"`
	TradingAccountID uuid.UUID       `json:"trading_account_id"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	CreditedAt       *time.Time      `json:"credited_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func newLedgerView(txn *models.LedgerTransaction) ledgerView {
	return ledgerView{
		ID:               txn.ID,
		DepositID:        txn.DepositID,
		TradingAccountID: txn.TradingAccountID,
		Type:             txn.Type,
		Status:           string(txn.Status),
		Amount:           txn.Amount,
		Currency:         txn.Currency,
		CreditedAt:       txn.CreditedAt,
		CreatedAt:        txn.CreatedAt,
	}
}
