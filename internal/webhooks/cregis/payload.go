package cregiswebhook

import (
	"github.com/apexmarkets/crm-backend/pkg/cregis"
)

// Payload is the parsed Cregis callback. The gateway posts a flat JSON
// object; ParamsFromJSON has already flattened every scalar to its canonical
// string form, so the payload is assembled from that map rather than decoded
// a second time.
type Payload struct {
	CregisID    string
	OrderID     string
	Status      string
	PayAmount   string
	PayCurrency string
	Chain       string
	TxID        string
	FromAddress string
	ToAddress   string
	Remark      string
	Sign        string
}

// payloadFromParams picks the recognized fields out of the canonical param
// map. Older gateway versions name the merchant order reference
// "third_party_id" and the transaction hash "tx_hash"; both spellings are
// accepted.
func payloadFromParams(params map[string]string) Payload {
	p := Payload{
		CregisID:    params["cregis_id"],
		OrderID:     params["order_id"],
		Status:      params["status"],
		PayAmount:   params["pay_amount"],
		PayCurrency: params["pay_currency"],
		Chain:       params["chain"],
		TxID:        params["tx_id"],
		FromAddress: params["from_address"],
		ToAddress:   params["to_address"],
		Remark:      params["remark"],
		Sign:        params[cregis.SignField],
	}
	if p.OrderID == "" {
		p.OrderID = params["third_party_id"]
	}
	if p.TxID == "" {
		p.TxID = params["tx_hash"]
	}
	return p
}
