package storefront

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/example/moonjewelry/pkg/checkout"
	"github.com/gin-gonic/gin"
)

const paymentErrorMessage = "There was a problem processing your payment. Please try again."

func (s *Storefront) checkoutForm(c *gin.Context) {
	buyer, basket, err := s.checkout.Prefill(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.serverError(c, err)
		return
	}
	if basket.IsEmpty() {
		addFlash(c, "warning", "Your cart is empty.")
		c.Redirect(http.StatusFound, "/cart")
		return
	}

	s.renderCheckout(c, http.StatusOK, formFromBuyer(buyer), nil)
}

func (s *Storefront) renderCheckout(c *gin.Context, status int, form checkoutForm, errs []string) {
	basket, err := s.carts.Get(c.Request.Context(), ownerOf(c))
	if err != nil {
		s.serverError(c, err)
		return
	}
	s.render(c, status, "checkout.html", gin.H{
		"Title":         "Checkout",
		"Form":          form,
		"Errors":        errs,
		"Cart":          basket,
		"ApplicationID": s.config.Payment.ApplicationID,
		"LocationID":    s.config.Payment.LocationID,
	})
}

func (s *Storefront) processCheckout(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	basket, err := s.carts.Get(ctx, ownerOf(c))
	if err != nil {
		s.serverError(c, err)
		return
	}
	if basket.IsEmpty() {
		addFlash(c, "warning", "Your cart is empty.")
		c.Redirect(http.StatusFound, "/cart")
		return
	}

	var form checkoutForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderCheckout(c, http.StatusBadRequest, form, bindingErrors(err))
		return
	}

	order, err := s.checkout.Checkout(ctx, userID, checkout.Input{
		Buyer:    form.buyer(),
		SourceID: form.SourceID,
	})
	if errors.Is(err, checkout.ErrEmptyCart) {
		addFlash(c, "warning", "Your cart is empty.")
		c.Redirect(http.StatusFound, "/cart")
		return
	}
	if err != nil {
		// declines and transport failures look the same to the buyer
		_ = c.Error(err)
		addFlash(c, "danger", paymentErrorMessage)
		c.Redirect(http.StatusFound, "/checkout")
		return
	}

	addFlash(c, "success", "Your order has been placed successfully!")
	c.Redirect(http.StatusFound, fmt.Sprintf("/order/%d/confirmation", order.ID))
}
