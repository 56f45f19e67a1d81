// Package controllers controllers/auth_controller.go
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fme-portal/identity"
	"fme-portal/logger"
	"fme-portal/middleware"
	"fme-portal/services"
)

// AuthController handles sign-in, sign-up and profile mutation.
type AuthController struct {
	Accounts services.AccountServiceInterface
	Identity identity.Provider
}

// NewAuthController constructs the controller, injecting needed services.
func NewAuthController(accounts services.AccountServiceInterface, provider identity.Provider) *AuthController {
	return &AuthController{Accounts: accounts, Identity: provider}
}

// ShowSignIn renders the sign-in page.
func (ac *AuthController) ShowSignIn(c *gin.Context) {
	if !middleware.CurrentSession(c).IsZero() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "signin.html", gin.H{})
}

// PerformSignIn processes the email/password form.
func (ac *AuthController) PerformSignIn(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	sess, err := ac.Accounts.SignIn(email, password)
	if err != nil {
		logger.Warn.Printf("PerformSignIn: rejected sign-in for %s", email)
		c.HTML(http.StatusUnauthorized, "signin.html", gin.H{
			"Error": "Email address or password is incorrect.",
			"Email": email,
		})
		return
	}

	if err := middleware.StoreSession(c, sess); err != nil {
		logger.Error.Printf("PerformSignIn: saving session: %v", err)
		c.HTML(http.StatusInternalServerError, "signin.html", gin.H{
			"Error": "Internal error, please try again.",
		})
		return
	}

	logger.Info.Printf("PerformSignIn: %s signed in", sess.Email)
	c.Redirect(http.StatusFound, "/")
}

// ShowSignUp renders the registration page.
func (ac *AuthController) ShowSignUp(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{})
}

// PerformSignUp registers a new account from the sign-up form.
func (ac *AuthController) PerformSignUp(c *gin.Context) {
	form := services.SignUpForm{
		Name:            c.PostForm("name"),
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		PasswordConfirm: c.PostForm("passwordConfirm"),
	}

	sess, err := ac.Accounts.SignUp(form)
	if err != nil {
		msg := "Registration failed, please check the form."
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			msg = "An account with this email already exists."
		case errors.Is(err, services.ErrInvalidEmail):
			msg = "Please use your student email address."
		}
		c.HTML(http.StatusBadRequest, "signup.html", gin.H{
			"Error": msg,
			"Form":  form,
		})
		return
	}

	if err := middleware.StoreSession(c, sess); err != nil {
		logger.Error.Printf("PerformSignUp: saving session: %v", err)
		c.HTML(http.StatusInternalServerError, "signup.html", gin.H{"Error": "Internal error, please try again."})
		return
	}

	logger.Info.Printf("PerformSignUp: account created for %s", sess.Email)
	c.Redirect(http.StatusFound, "/")
}

// ProviderSignIn exchanges an external provider ID token for a local session.
// New accounts are provisioned on the fly for verified student emails.
func (ac *AuthController) ProviderSignIn(c *gin.Context) {
	var body struct {
		IDToken string `json:"idToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idToken is required"})
		return
	}

	profile, err := ac.Identity.Verify(c.Request.Context(), body.IDToken)
	if err != nil {
		logger.Warn.Printf("ProviderSignIn: token verification failed: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token verification failed"})
		return
	}

	sess, err := ac.Accounts.SignInWithProvider(profile)
	if err != nil {
		if errors.Is(err, services.ErrInvalidEmail) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only student email accounts are accepted"})
			return
		}
		logger.Error.Printf("ProviderSignIn: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign-in failed"})
		return
	}

	if err := middleware.StoreSession(c, sess); err != nil {
		logger.Error.Printf("ProviderSignIn: saving session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign-in failed"})
		return
	}

	logger.Info.Printf("ProviderSignIn: %s signed in via provider", sess.Email)
	c.JSON(http.StatusOK, sess)
}

// SignOut clears both the service-side session mirror and the cookie session.
func (ac *AuthController) SignOut(c *gin.Context) {
	if err := ac.Accounts.SignOut(middleware.CurrentSession(c).Email); err != nil {
		logger.Error.Printf("SignOut: %v", err)
	}
	if err := middleware.ClearSession(c); err != nil {
		logger.Error.Printf("SignOut: clearing cookie session: %v", err)
	}
	c.Redirect(http.StatusFound, "/signin")
}

// Profile renders the signed-in user's profile page.
func (ac *AuthController) Profile(c *gin.Context) {
	c.HTML(http.StatusOK, "profile.html", gin.H{
		"User": middleware.CurrentSession(c),
	})
}

// UpdateProfile changes the display name of the signed-in account.
func (ac *AuthController) UpdateProfile(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	sess := middleware.CurrentSession(c)
	refreshed, err := ac.Accounts.UpdateProfile(sess.Email, name)
	if err != nil {
		logger.Error.Printf("UpdateProfile: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Profile update failed"})
		return
	}

	// the report grant lives on the cookie, not the account record
	refreshed.CanAccessReports = sess.CanAccessReports
	if err := middleware.StoreSession(c, refreshed); err != nil {
		logger.Error.Printf("UpdateProfile: refreshing cookie session: %v", err)
	}
	c.Redirect(http.StatusFound, "/profile")
}

// UpdateAvatar stores a new avatar reference for the signed-in account.
func (ac *AuthController) UpdateAvatar(c *gin.Context) {
	avatar := c.PostForm("avatar")
	if avatar == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar is required"})
		return
	}

	sess := middleware.CurrentSession(c)
	refreshed, err := ac.Accounts.UpdateAvatar(sess.Email, avatar)
	if err != nil {
		logger.Error.Printf("UpdateAvatar: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Avatar update failed"})
		return
	}

	refreshed.CanAccessReports = sess.CanAccessReports
	if err := middleware.StoreSession(c, refreshed); err != nil {
		logger.Error.Printf("UpdateAvatar: refreshing cookie session: %v", err)
	}
	c.Redirect(http.StatusFound, "/profile")
}

// ChangePassword swaps the account password after checking the old one.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	oldPassword := c.PostForm("oldPassword")
	newPassword := c.PostForm("newPassword")

	if err := ac.Accounts.ChangePassword(middleware.CurrentSession(c).Email, oldPassword, newPassword); err != nil {
		if errors.Is(err, services.ErrWrongPassword) {
			c.HTML(http.StatusBadRequest, "profile.html", gin.H{
				"User":  middleware.CurrentSession(c),
				"Error": "Current password is incorrect.",
			})
			return
		}
		logger.Error.Printf("ChangePassword: %v", err)
		c.HTML(http.StatusInternalServerError, "profile.html", gin.H{
			"User":  middleware.CurrentSession(c),
			"Error": "Password change failed.",
		})
		return
	}

	c.Redirect(http.StatusFound, "/profile")
}
