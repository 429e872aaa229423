package usecase

import (
	"regexp"
	"strings"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// maxPriceScale is the number of decimal places a unit price may carry.
const maxPriceScale = 2

// ValidateIntent checks a checkout request before any network call is made.
// Checks run in a fixed order and stop at the first failure.
func ValidateIntent(req model.PaymentIntentRequest) (model.ValidatedIntent, error) {
	payerID := strings.TrimSpace(req.PayerID)
	if payerID == "" {
		return model.ValidatedIntent{}, missing("payer_id")
	}

	email := strings.TrimSpace(req.PayerEmail)
	if email == "" {
		return model.ValidatedIntent{}, missing("payer_email")
	}
	if !emailPattern.MatchString(email) {
		return model.ValidatedIntent{}, &domain.ValidationError{
			Kind:    domain.InvalidEmail,
			Field:   "payer_email",
			Message: "payer_email is not a valid email address",
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.ValidatedIntent{}, missing("title")
	}

	if req.UnitPrice == nil {
		return model.ValidatedIntent{}, missing("unit_price")
	}
	price := *req.UnitPrice
	if !price.IsPositive() {
		return model.ValidatedIntent{}, &domain.ValidationError{
			Kind:    domain.InvalidAmount,
			Field:   "unit_price",
			Message: "unit_price must be greater than zero",
		}
	}
	if !price.Equal(price.Truncate(maxPriceScale)) {
		return model.ValidatedIntent{}, &domain.ValidationError{
			Kind:    domain.InvalidAmount,
			Field:   "unit_price",
			Message: "unit_price has more than two decimal places",
		}
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if qty <= 0 {
		return model.ValidatedIntent{}, &domain.ValidationError{
			Kind:    domain.InvalidQuantity,
			Field:   "quantity",
			Message: "quantity must be greater than zero",
		}
	}

	return model.ValidatedIntent{
		PayerID:    payerID,
		PayerEmail: email,
		Title:      title,
		UnitPrice:  price.Round(maxPriceScale),
		Quantity:   qty,
	}, nil
}

func missing(field string) *domain.ValidationError {
	return &domain.ValidationError{
		Kind:    domain.MissingField,
		Field:   field,
		Message: field + " is required",
	}
}
