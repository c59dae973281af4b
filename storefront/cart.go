package storefront

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/moonjewelry/pkg/cart"
	"github.com/gin-gonic/gin"
)

type addToCartForm struct {
	VariationID uint `form:"variation_id"`
}

type updateCartForm struct {
	Quantity *int `form:"quantity" binding:"required"`
}

func (s *Storefront) cartDetail(c *gin.Context) {
	basket, err := s.carts.Get(c.Request.Context(), ownerOf(c))
	if err != nil {
		s.serverError(c, err)
		return
	}
	s.render(c, http.StatusOK, "cart.html", gin.H{
		"Title": "Cart",
		"Cart":  basket,
	})
}

func (s *Storefront) addToCart(c *gin.Context) {
	jewelryID, ok := parseID(c, "jewelryID")
	if !ok {
		s.notFound(c)
		return
	}

	var form addToCartForm
	if err := c.ShouldBind(&form); err != nil {
		addFlash(c, "danger", "Please choose valid options.")
		c.Redirect(http.StatusFound, "/products/"+strconv.FormatUint(uint64(jewelryID), 10))
		return
	}
	var variationID *uint
	if form.VariationID != 0 {
		variationID = &form.VariationID
	}

	item, err := s.carts.Add(c.Request.Context(), ownerOf(c), jewelryID, variationID)
	if errors.Is(err, cart.ErrProductUnavailable) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	addFlash(c, "success", fmt.Sprintf("%s added to your cart.", item.Jewelry.Name))
	c.Redirect(http.StatusFound, "/cart")
}

func (s *Storefront) updateCart(c *gin.Context) {
	itemID, ok := parseID(c, "itemID")
	if !ok {
		s.notFound(c)
		return
	}

	var form updateCartForm
	if err := c.ShouldBind(&form); err != nil {
		addFlash(c, "danger", "Please enter a valid quantity.")
		c.Redirect(http.StatusFound, "/cart")
		return
	}

	item, err := s.carts.Update(c.Request.Context(), ownerOf(c), itemID, *form.Quantity)
	if errors.Is(err, cart.ErrItemNotFound) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	if item == nil {
		addFlash(c, "success", "Item removed from your cart.")
	} else {
		addFlash(c, "success", "Cart updated.")
	}
	c.Redirect(http.StatusFound, "/cart")
}

func (s *Storefront) removeFromCart(c *gin.Context) {
	itemID, ok := parseID(c, "itemID")
	if !ok {
		s.notFound(c)
		return
	}

	item, err := s.carts.Remove(c.Request.Context(), ownerOf(c), itemID)
	if errors.Is(err, cart.ErrItemNotFound) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	addFlash(c, "success", fmt.Sprintf("%s removed from your cart.", item.Jewelry.Name))
	c.Redirect(http.StatusFound, "/cart")
}
