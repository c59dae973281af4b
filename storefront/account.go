package storefront

import (
	"errors"
	"net/http"

	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/notify"
	"github.com/example/moonjewelry/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const invalidLogin = "Please enter a correct username and password."

func (s *Storefront) signupForm(c *gin.Context) {
	s.render(c, http.StatusOK, "signup.html", gin.H{"Title": "Sign up"})
}

func (s *Storefront) signup(c *gin.Context) {
	ctx := c.Request.Context()

	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderSignup(c, form, bindingErrors(err))
		return
	}

	taken, err := s.store.UsernameTaken(ctx, form.Username)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if taken {
		s.renderSignup(c, form, []string{"A user with that username already exists."})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password1), bcrypt.DefaultCost)
	if err != nil {
		s.serverError(c, err)
		return
	}

	user := models.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		s.serverError(c, err)
		return
	}
	s.logger.Info("User signed up", zap.Uint("user_id", user.ID), zap.String("username", user.Username))

	if err := s.beginUserSession(c, user.ID); err != nil {
		s.serverError(c, err)
		return
	}
	addFlash(c, "success", "Welcome to Moon Jewelry!")
	c.Redirect(http.StatusFound, "/")
}

func (s *Storefront) renderSignup(c *gin.Context, form signupForm, errs []string) {
	s.render(c, http.StatusBadRequest, "signup.html", gin.H{
		"Title":    "Sign up",
		"Username": form.Username,
		"Email":    form.Email,
		"Errors":   errs,
	})
}

func (s *Storefront) loginForm(c *gin.Context) {
	if currentUserID(c) != 0 {
		c.Redirect(http.StatusFound, "/")
		return
	}
	s.render(c, http.StatusOK, "login.html", gin.H{
		"Title": "Log in",
		"Next":  c.Query("next"),
	})
}

func (s *Storefront) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderLogin(c, form)
		return
	}

	user, err := s.store.UserByUsername(c.Request.Context(), form.Username)
	if errors.Is(err, repository.ErrNotFound) {
		s.renderLogin(c, form)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)) != nil {
		s.renderLogin(c, form)
		return
	}

	if err := s.beginUserSession(c, user.ID); err != nil {
		s.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, safeNext(form.Next, "/"))
}

func (s *Storefront) renderLogin(c *gin.Context, form loginForm) {
	s.render(c, http.StatusUnauthorized, "login.html", gin.H{
		"Title":    "Log in",
		"Username": form.Username,
		"Next":     form.Next,
		"Error":    invalidLogin,
	})
}

// beginUserSession logs the user in and hands over the anonymous cart.
func (s *Storefront) beginUserSession(c *gin.Context, userID uint) error {
	cartKey, err := startSession(c, userID)
	if err != nil {
		return err
	}
	if err := s.carts.Adopt(c.Request.Context(), cartKey, userID); err != nil {
		s.logger.Error("Failed to adopt anonymous cart", zap.Uint("user_id", userID), zap.Error(err))
	}
	return nil
}

func (s *Storefront) logout(c *gin.Context) {
	if err := endSession(c); err != nil {
		s.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (s *Storefront) profileForm(c *gin.Context) {
	user, err := s.store.UserByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.serverError(c, err)
		return
	}
	s.render(c, http.StatusOK, "profile.html", gin.H{
		"Title": "Profile",
		"Form":  formFromBuyer(models.BuyerFor(*user)),
	})
}

func (s *Storefront) updateProfile(c *gin.Context) {
	ctx := c.Request.Context()

	var form profileForm
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, "profile.html", gin.H{
			"Title":  "Profile",
			"Form":   form,
			"Errors": bindingErrors(err),
		})
		return
	}

	user, err := s.store.UserByID(ctx, currentUserID(c))
	if err != nil {
		s.serverError(c, err)
		return
	}

	buyer := form.buyer()
	buyer.Normalize()
	profile := user.Profile
	profile.UserID = user.ID
	profile.Apply(buyer)
	if err := s.store.SaveProfile(ctx, &profile); err != nil {
		s.serverError(c, err)
		return
	}
	s.notifier.Send(&notify.ProfileUpdated{UserID: user.ID})

	addFlash(c, "success", "Your profile has been updated.")
	c.Redirect(http.StatusFound, "/profile")
}
