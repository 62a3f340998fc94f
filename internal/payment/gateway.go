// Package payment simulates the card/UPI gateway used by diagnostics
// bookings. No money moves; the outcome is decided locally.
package payment

import (
	"context"
	"errors"
	"slices"
	"strings"

	"medcenter/internal/config"
	"medcenter/internal/models"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrInvalidAmount     = errors.New("payment amount must be positive")
	ErrCardRequired      = errors.New("card number is required")
)

const declinedReason = "Your card was declined. Please use another card or payment method."

type Gateway struct {
	methods []string
	decline string
	prefix  string
}

func NewGateway(cfg config.PaymentsConfig) *Gateway {
	return &Gateway{
		methods: cfg.Methods,
		decline: cfg.DeclineSuffix,
		prefix:  cfg.ReferencePrefix,
	}
}

// Charge validates the request and returns paid, declined or
// pay_on_collection. Every non-error result carries a fresh reference.
func (g *Gateway) Charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !slices.Contains(g.methods, req.Method) {
		return nil, ErrUnsupportedMethod
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	res := &models.PaymentResult{Reference: g.reference()}
	switch req.Method {
	case models.PaymentMethodCash:
		res.Status = models.PaymentOnSite
	case models.PaymentMethodCard:
		card := digits(req.CardNumber)
		if card == "" {
			return nil, ErrCardRequired
		}
		if g.decline != "" && strings.HasSuffix(card, g.decline) {
			res.Status = models.PaymentDeclined
			res.Reason = declinedReason
			return res, nil
		}
		res.Status = models.PaymentPaid
	default:
		res.Status = models.PaymentPaid
	}
	return res, nil
}

func (g *Gateway) reference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	if g.prefix == "" {
		return id
	}
	return g.prefix + "-" + id
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
