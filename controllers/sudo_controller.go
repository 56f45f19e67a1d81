// File: controllers/sudo_controller.go
package controllers

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"fme-portal/logger"
	"fme-portal/middleware"
	"fme-portal/storage"
)

// SudoController is the operator console: storage inspection and the blunt
// recovery actions that do not belong in the normal admin views.
type SudoController struct {
	Store storage.Store
}

// NewSudoController constructs the controller over the backing store.
func NewSudoController(store storage.Store) *SudoController {
	return &SudoController{Store: store}
}

// sudoPasscodeHash returns the bcrypt hash the console passcode is checked
// against. An empty value keeps the console permanently locked.
func sudoPasscodeHash() string {
	return os.Getenv("SUDO_PASSCODE_HASH")
}

// ShowUnlock renders the passcode prompt.
func (sc *SudoController) ShowUnlock(c *gin.Context) {
	c.HTML(http.StatusOK, "sudo_unlock.html", gin.H{})
}

// Unlock checks the posted passcode and flips the sudo flag in the session.
func (sc *SudoController) Unlock(c *gin.Context) {
	passcode := c.PostForm("passcode")
	hash := sudoPasscodeHash()

	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(passcode)) != nil {
		logger.Warn.Println("Unlock: bad operator passcode attempt")
		c.HTML(http.StatusUnauthorized, "sudo_unlock.html", gin.H{
			"Error": "Incorrect passcode.",
		})
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionKeySudo, true)
	if err := session.Save(); err != nil {
		logger.Error.Printf("Unlock: saving session: %v", err)
		c.String(http.StatusInternalServerError, "Internal error")
		return
	}

	logger.Info.Println("Unlock: operator console unlocked")
	c.Redirect(http.StatusFound, "/sudo")
}

// Panel lists the storage keys so an operator can see what state exists.
func (sc *SudoController) Panel(c *gin.Context) {
	keys, err := sc.Store.Keys()
	if err != nil {
		logger.Error.Printf("Panel: listing keys: %v", err)
	}
	c.HTML(http.StatusOK, "sudo.html", gin.H{
		"Keys": keys,
	})
}

// ForceSignOut drops the persisted session slot, signing the current account
// out everywhere on its next request.
func (sc *SudoController) ForceSignOut(c *gin.Context) {
	if err := sc.Store.Delete(storage.KeySession); err != nil {
		logger.Error.Printf("ForceSignOut: %v", err)
		c.String(http.StatusInternalServerError, "Could not clear session slot")
		return
	}
	logger.Info.Println("ForceSignOut: persisted session cleared by operator")
	c.Redirect(http.StatusFound, "/sudo")
}

// ClearDraftSlot discards a stuck draft report. With an email form field it
// clears that user's slot; without one it clears every draft slot.
func (sc *SudoController) ClearDraftSlot(c *gin.Context) {
	if email := c.PostForm("email"); email != "" {
		if err := sc.Store.Delete(storage.DraftKey(email)); err != nil {
			logger.Error.Printf("ClearDraftSlot: %v", err)
			c.String(http.StatusInternalServerError, "Could not clear draft slot")
			return
		}
		logger.Info.Printf("ClearDraftSlot: draft slot for %s cleared by operator", email)
		c.Redirect(http.StatusFound, "/sudo")
		return
	}

	keys, err := sc.Store.Keys()
	if err != nil {
		logger.Error.Printf("ClearDraftSlot: listing keys: %v", err)
		c.String(http.StatusInternalServerError, "Could not list storage keys")
		return
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, storage.KeyDraft) {
			continue
		}
		if err := sc.Store.Delete(key); err != nil {
			logger.Error.Printf("ClearDraftSlot: deleting %s: %v", key, err)
			c.String(http.StatusInternalServerError, "Could not clear draft slot")
			return
		}
	}
	logger.Info.Println("ClearDraftSlot: draft slots cleared by operator")
	c.Redirect(http.StatusFound, "/sudo")
}

// PurgeStorage deletes every key. Accounts, roster, reports, preferences:
// everything. The confirm field must spell "purge" to go through.
func (sc *SudoController) PurgeStorage(c *gin.Context) {
	if c.PostForm("confirm") != "purge" {
		c.String(http.StatusBadRequest, "Type purge in the confirm field to proceed")
		return
	}

	keys, err := sc.Store.Keys()
	if err != nil {
		logger.Error.Printf("PurgeStorage: listing keys: %v", err)
		c.String(http.StatusInternalServerError, "Could not list storage keys")
		return
	}

	for _, key := range keys {
		if err := sc.Store.Delete(key); err != nil {
			logger.Error.Printf("PurgeStorage: deleting %s: %v", key, err)
		}
	}

	logger.Info.Printf("PurgeStorage: %d keys deleted by operator", len(keys))
	c.Redirect(http.StatusFound, "/sudo")
}
