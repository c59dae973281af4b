package storefront

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (s *Storefront) home(c *gin.Context) {
	ctx := c.Request.Context()

	featured, err := s.store.ListJewelry(ctx, repository.JewelryFilter{ActiveOnly: true, Limit: 8})
	if err != nil {
		s.serverError(c, err)
		return
	}
	events, err := s.store.UpcomingEvents(ctx, time.Now(), 3)
	if err != nil {
		s.serverError(c, err)
		return
	}

	s.render(c, http.StatusOK, "home.html", gin.H{
		"Featured": featured,
		"Events":   events,
	})
}

func (s *Storefront) productList(c *gin.Context) {
	ctx := c.Request.Context()
	category := c.Query("category")
	query := strings.TrimSpace(c.Query("q"))

	products, err := s.store.ListJewelry(ctx, repository.JewelryFilter{
		CategorySlug: category,
		Query:        query,
		ActiveOnly:   true,
	})
	if err != nil {
		s.serverError(c, err)
		return
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		s.serverError(c, err)
		return
	}

	s.render(c, http.StatusOK, "product_list.html", gin.H{
		"Title":      "Shop",
		"Products":   products,
		"Categories": categories,
		"Category":   category,
		"Query":      query,
	})
}

func (s *Storefront) productDetail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		s.notFound(c)
		return
	}

	j, err := s.jewelry(c, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !j.IsActive) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	s.render(c, http.StatusOK, "product_detail.html", gin.H{
		"Title":   j.Name,
		"Product": j,
	})
}

// jewelry reads a product through the cache when one is configured.
func (s *Storefront) jewelry(c *gin.Context, id uint) (*models.Jewelry, error) {
	ctx := c.Request.Context()

	if s.cache != nil {
		if cached, err := s.cache.GetJewelryCache(ctx, id); err == nil {
			return cached, nil
		} else if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("Failed to read jewelry cache", zap.Uint("jewelry_id", id), zap.Error(err))
		}
	}

	j, err := s.store.GetJewelry(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheJewelry(ctx, j); err != nil {
			s.logger.Warn("Failed to cache jewelry", zap.Uint("jewelry_id", id), zap.Error(err))
		}
	}
	return j, nil
}

func (s *Storefront) invalidateJewelry(c *gin.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateJewelry(c.Request.Context(), id); err != nil {
		s.logger.Warn("Failed to invalidate jewelry cache", zap.Uint("jewelry_id", id), zap.Error(err))
	}
}

func (s *Storefront) eventList(c *gin.Context) {
	events, err := s.store.ActiveEvents(c.Request.Context())
	if err != nil {
		s.serverError(c, err)
		return
	}

	now := time.Now()
	var upcoming, past []models.Event
	for _, e := range events {
		if e.IsUpcoming(now) {
			upcoming = append(upcoming, e)
		} else {
			past = append(past, e)
		}
	}

	s.render(c, http.StatusOK, "events.html", gin.H{
		"Title":    "Events",
		"Upcoming": upcoming,
		"Past":     past,
	})
}
