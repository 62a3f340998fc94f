package models

// PaymentRequest is what the simulated gateway charges.
type PaymentRequest struct {
	Method     string  `json:"method"`
	Amount     float64 `json:"amount"`
	CardNumber string  `json:"card_number,omitempty"`
	Payer      string  `json:"payer"`
}

// PaymentResult is the gateway's verdict. Declined results carry a reason
// suitable for showing to the patient.
type PaymentResult struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
}
