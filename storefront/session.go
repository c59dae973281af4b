package storefront

import (
	"encoding/gob"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/moonjewelry/pkg/cart"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionUserID  = "user_id"
	sessionCartKey = "cart_key"
	ownerKey       = "cart_owner"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string
	Message string
}

func init() {
	gob.Register(Flash{})
}

func addFlash(c *gin.Context, level, message string) {
	session := sessions.Default(c)
	session.AddFlash(Flash{Level: level, Message: message})
	_ = session.Save()
}

func takeFlashes(c *gin.Context) []Flash {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save()

	flashes := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if flash, ok := f.(Flash); ok {
			flashes = append(flashes, flash)
		}
	}
	return flashes
}

// resolveOwner decides once per request whose cart the request works on.
// Anonymous visitors get a random cart key stored in their session.
func (s *Storefront) resolveOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		if id, ok := session.Get(sessionUserID).(uint); ok && id != 0 {
			c.Set(ownerKey, cart.Authenticated(id))
			c.Next()
			return
		}

		key, _ := session.Get(sessionCartKey).(string)
		if key == "" {
			key = uuid.NewString()
			session.Set(sessionCartKey, key)
			_ = session.Save()
		}
		c.Set(ownerKey, cart.Anonymous(key))
		c.Next()
	}
}

func ownerOf(c *gin.Context) cart.Owner {
	if v, ok := c.Get(ownerKey); ok {
		if owner, ok := v.(cart.Owner); ok {
			return owner
		}
	}
	return cart.Owner{}
}

func currentUserID(c *gin.Context) uint {
	return ownerOf(c).UserID()
}

func requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUserID(c) == 0 {
			target := "/accounts/login?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}

// startSession logs the user in, keeping the anonymous cart key so the caller
// can adopt that cart.
func startSession(c *gin.Context, userID uint) (string, error) {
	session := sessions.Default(c)
	key, _ := session.Get(sessionCartKey).(string)
	session.Delete(sessionCartKey)
	session.Set(sessionUserID, userID)
	c.Set(ownerKey, cart.Authenticated(userID))
	return key, session.Save()
}

func endSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// safeNext only follows local redirects.
func safeNext(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return fallback
	}
	if u, err := url.Parse(next); err != nil || u.Host != "" {
		return fallback
	}
	return next
}
