package hostedlink

import (
	"strings"

	"github.com/moralesdev/fieldbill-backend/pkg/enums"
)

// PaymentWebhookEvent is the processor's event envelope for payment webhooks.
type PaymentWebhookEvent struct {
	EventID string             `json:"event_id"`
	Type    string             `json:"type"`
	Data    PaymentWebhookData `json:"data"`
}

type PaymentWebhookData struct {
	Type   string               `json:"type"`
	ID     string               `json:"id"`
	Object PaymentWebhookObject `json:"object"`
}

type PaymentWebhookObject struct {
	Payment *PaymentPayload `json:"payment"`
}

// PaymentPayload carries the fields this engine reads from a processor
// payment. The ledger entry reference travels in the payment note.
type PaymentPayload struct {
	ID            string                `json:"id"`
	Status        string                `json:"status"`
	Note          string                `json:"note"`
	ReferenceID   string                `json:"reference_id"`
	SourceType    string                `json:"source_type"`
	MethodDetails []PaymentMethodDetail `json:"method_details"`
}

type PaymentMethodDetail struct {
	Type  string `json:"type"`
	Brand string `json:"brand"`
}

// classifyMethod maps processor method types onto the closed PaymentMethod
// enum. Precedence when several types are present: bank transfer, then
// wallet, then card.
func classifyMethod(details []PaymentMethodDetail) enums.PaymentMethod {
	for _, detail := range details {
		switch strings.ToLower(detail.Type) {
		case "bank_transfer", "bank_account", "ach":
			return enums.PaymentMethodACH
		}
	}
	for _, detail := range details {
		if strings.ToLower(detail.Type) != "wallet" {
			continue
		}
		switch strings.ToLower(detail.Brand) {
		case "cash_app", "cashapp":
			return enums.PaymentMethodCashApp
		case "venmo":
			return enums.PaymentMethodVenmo
		case "zelle":
			return enums.PaymentMethodZelle
		}
	}
	return enums.PaymentMethodCard
}
