package validation

import (
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/bookcourier/courier-api/internal/checkout"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// the price, rounded to cents, must be an amount the processor accepts
	// for a single line item.
	v.RegisterStructValidation(checkoutStructValidation, CheckoutSessionRequest{})

	return v
}

func checkoutStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CheckoutSessionRequest)

	if !checkout.CentsInRange(req.Price) {
		sl.ReportError(req.Price, "price", "Price", "cents_range",
			fmt.Sprintf("price %s must be between %s and %s", req.Price,
				checkout.FromCents(checkout.MinAmountCents).StringFixed(2),
				checkout.FromCents(checkout.MaxAmountCents).StringFixed(2)))
	}
}
