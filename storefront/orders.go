package storefront

import (
	"errors"
	"net/http"

	"github.com/example/moonjewelry/pkg/repository"
	"github.com/gin-gonic/gin"
)

func (s *Storefront) orderConfirmation(c *gin.Context) {
	orderID, ok := parseID(c, "orderID")
	if !ok {
		s.notFound(c)
		return
	}

	order, err := s.store.OrderForUser(c.Request.Context(), currentUserID(c), orderID)
	if errors.Is(err, repository.ErrNotFound) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	s.render(c, http.StatusOK, "order_confirmation.html", gin.H{
		"Title": "Order confirmation",
		"Order": order,
	})
}

func (s *Storefront) orderHistory(c *gin.Context) {
	orders, err := s.store.OrdersForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.serverError(c, err)
		return
	}
	s.render(c, http.StatusOK, "order_history.html", gin.H{
		"Title":  "Order history",
		"Orders": orders,
	})
}
