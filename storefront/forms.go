package storefront

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/moonjewelry/pkg/models"
	"github.com/go-playground/validator/v10"
)

// checkoutForm is the flat checkout form; the card token comes from the
// client-side tokenizer.
type checkoutForm struct {
	FullName            string `form:"full_name" binding:"required,max=200"`
	Email               string `form:"email" binding:"required,email,max=254"`
	Phone               string `form:"phone" binding:"max=20"`
	ShippingStreet      string `form:"shipping_street" binding:"required,max=255"`
	ShippingCity        string `form:"shipping_city" binding:"required,max=100"`
	ShippingState       string `form:"shipping_state" binding:"required,max=100"`
	ShippingZip         string `form:"shipping_zip" binding:"required,max=20"`
	ShippingCountry     string `form:"shipping_country" binding:"max=100"`
	SameBillingShipping bool   `form:"same_billing_shipping"`
	BillingStreet       string `form:"billing_street" binding:"required_if=SameBillingShipping false,max=255"`
	BillingCity         string `form:"billing_city" binding:"required_if=SameBillingShipping false,max=100"`
	BillingState        string `form:"billing_state" binding:"required_if=SameBillingShipping false,max=100"`
	BillingZip          string `form:"billing_zip" binding:"required_if=SameBillingShipping false,max=20"`
	BillingCountry      string `form:"billing_country" binding:"max=100"`
	SourceID            string `form:"source_id" binding:"required"`
}

func (f checkoutForm) buyer() models.Buyer {
	return models.Buyer{
		FullName: strings.TrimSpace(f.FullName),
		Email:    strings.TrimSpace(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		Shipping: models.Address{
			Street:  f.ShippingStreet,
			City:    f.ShippingCity,
			State:   f.ShippingState,
			Zip:     f.ShippingZip,
			Country: f.ShippingCountry,
		},
		Billing: models.Address{
			Street:  f.BillingStreet,
			City:    f.BillingCity,
			State:   f.BillingState,
			Zip:     f.BillingZip,
			Country: f.BillingCountry,
		},
		SameBillingShipping: f.SameBillingShipping,
	}
}

type profileForm struct {
	FullName            string `form:"full_name" binding:"max=200"`
	Phone               string `form:"phone" binding:"max=20"`
	ShippingStreet      string `form:"shipping_street" binding:"max=255"`
	ShippingCity        string `form:"shipping_city" binding:"max=100"`
	ShippingState       string `form:"shipping_state" binding:"max=100"`
	ShippingZip         string `form:"shipping_zip" binding:"max=20"`
	ShippingCountry     string `form:"shipping_country" binding:"max=100"`
	SameBillingShipping bool   `form:"same_billing_shipping"`
	BillingStreet       string `form:"billing_street" binding:"max=255"`
	BillingCity         string `form:"billing_city" binding:"max=100"`
	BillingState        string `form:"billing_state" binding:"max=100"`
	BillingZip          string `form:"billing_zip" binding:"max=20"`
	BillingCountry      string `form:"billing_country" binding:"max=100"`
}

func (f profileForm) buyer() models.Buyer {
	return checkoutForm{
		FullName:            f.FullName,
		Phone:               f.Phone,
		ShippingStreet:      f.ShippingStreet,
		ShippingCity:        f.ShippingCity,
		ShippingState:       f.ShippingState,
		ShippingZip:         f.ShippingZip,
		ShippingCountry:     f.ShippingCountry,
		SameBillingShipping: f.SameBillingShipping,
		BillingStreet:       f.BillingStreet,
		BillingCity:         f.BillingCity,
		BillingState:        f.BillingState,
		BillingZip:          f.BillingZip,
		BillingCountry:      f.BillingCountry,
	}.buyer()
}

// formFromBuyer prefills the checkout and profile pages.
func formFromBuyer(b models.Buyer) checkoutForm {
	return checkoutForm{
		FullName:            b.FullName,
		Email:               b.Email,
		Phone:               b.Phone,
		ShippingStreet:      b.Shipping.Street,
		ShippingCity:        b.Shipping.City,
		ShippingState:       b.Shipping.State,
		ShippingZip:         b.Shipping.Zip,
		ShippingCountry:     b.Shipping.Country,
		SameBillingShipping: b.SameBillingShipping,
		BillingStreet:       b.Billing.Street,
		BillingCity:         b.Billing.City,
		BillingState:        b.Billing.State,
		BillingZip:          b.Billing.Zip,
		BillingCountry:      b.Billing.Country,
	}
}

type signupForm struct {
	Username  string `form:"username" binding:"required,min=3,max=150,alphanum"`
	Email     string `form:"email" binding:"required,email,max=254"`
	Password1 string `form:"password1" binding:"required,min=8,max=72"`
	Password2 string `form:"password2" binding:"required,eqfield=Password1"`
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

// bindingErrors turns validator failures into one message per field.
func bindingErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"The form could not be read."}
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required", "required_if":
			messages = append(messages, fmt.Sprintf("%s is required.", field))
		case "email":
			messages = append(messages, "Enter a valid email address.")
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters.", field, fe.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters.", field, fe.Param()))
		case "eqfield":
			messages = append(messages, "The two password fields didn't match.")
		case "alphanum":
			messages = append(messages, fmt.Sprintf("%s may only contain letters and digits.", field))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid.", field))
		}
	}
	return messages
}
