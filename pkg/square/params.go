package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
)

// PaymentLinkCreateParams contains the fields required to open a hosted
// checkout link for a single invoice.
type PaymentLinkCreateParams struct {
	AmountCents    int64
	Currency       string
	Name           string
	Description    string
	ReferenceID    string
	BuyerEmail     string
	BuyerPhone     string
	IdempotencyKey string
}

func (p PaymentLinkCreateParams) toSquareRequest(idempotencyKey, locationID string) *sqcheckout.CreatePaymentLinkRequest {
	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		QuickPay: &sq.QuickPay{
			Name:       p.Name,
			PriceMoney: moneyPtr(p.AmountCents, p.Currency),
			LocationID: locationID,
		},
	}
	if trimmed := strings.TrimSpace(p.Description); trimmed != "" {
		req.Description = ptrString(trimmed)
	}
	// The entry reference travels in the payment note so the webhook can
	// resolve the ledger entry from the processor event.
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		req.PaymentNote = ptrString(trimmed)
	}
	prePopulated := &sq.PrePopulatedData{}
	populated := false
	if trimmed := strings.TrimSpace(p.BuyerEmail); trimmed != "" {
		prePopulated.BuyerEmail = ptrString(trimmed)
		populated = true
	}
	if trimmed := strings.TrimSpace(p.BuyerPhone); trimmed != "" {
		prePopulated.BuyerPhoneNumber = ptrString("+1" + trimmed)
		populated = true
	}
	if populated {
		req.PrePopulatedData = prePopulated
	}
	return req
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
