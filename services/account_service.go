// Package services contains the portal's business logic.
// File: services/account_service.go
package services

import (
	"errors"
	"sync"

	"fme-portal/identity"
	"fme-portal/logger"
	"fme-portal/models"
	"fme-portal/storage"
)

// ---------------- errors ----------------

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("email must be a student email")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrNoSession          = errors.New("no user is signed in")
	ErrAccountNotFound    = errors.New("account not found")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// ---------------- service interface ----------------

// AccountServiceInterface manages the registered-accounts table. Requests are
// authenticated by their cookie session, so every mutation names the acting
// account by email; the service itself holds no notion of "who is signed in".
type AccountServiceInterface interface {
	SignIn(email, password string) (models.Session, error)
	SignInWithProvider(profile identity.Profile) (models.Session, error)
	SignUp(form SignUpForm) (models.Session, error)
	UpdateProfile(email, name string) (models.Session, error)
	UpdateAvatar(email, avatar string) (models.Session, error)
	ChangePassword(email, oldPassword, newPassword string) error
	SignOut(email string) error
}

// SignUpForm carries the sign-up fields. Passwords must be at least 8
// characters and confirmed.
type SignUpForm struct {
	Name            string `form:"name" validate:"required"`
	Email           string `form:"email" validate:"required,studentemail"`
	Password        string `form:"password" validate:"required,min=8"`
	PasswordConfirm string `form:"passwordConfirm" validate:"required,eqfield=Password"`
}

// Validate runs the field rules.
func (f *SignUpForm) Validate() error {
	return validate.Struct(f)
}

// ---------------- service implementation ----------------

// AccountService is the storage-backed implementation. All account mutations
// are read-modify-write over the accounts-table snapshot. The current-session
// key holds a single-slot mirror of the most recent sign-in (last write wins,
// like every other key); it exists for the operator console, not for
// authentication, which lives in the cookie.
type AccountService struct {
	store storage.Store
	mu    sync.Mutex
}

// NewAccountService builds the service.
func NewAccountService(store storage.Store) *AccountService {
	return &AccountService{store: store}
}

func (svc *AccountService) loadAccounts() ([]models.Account, error) {
	var accounts []models.Account
	if err := svc.store.Read(storage.KeyAccounts, &accounts); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return accounts, nil
}

func (svc *AccountService) saveAccounts(accounts []models.Account) error {
	return svc.store.Write(storage.KeyAccounts, accounts)
}

func (svc *AccountService) mirrorSession(s models.Session) {
	if err := svc.store.Write(storage.KeySession, s); err != nil {
		logger.Error.Printf("[AccountService] failed to mirror session: %v", err)
	}
}

func sessionFromAccount(a models.Account) models.Session {
	return models.Session{
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		StudentID: a.StudentID,
		Avatar:    a.Avatar,
	}
}

// SignIn looks up an account matching both email and password exactly. This
// preserves the original site's demonstration-grade scheme: no hashing, no
// lockout.
func (svc *AccountService) SignIn(email, password string) (models.Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	accounts, err := svc.loadAccounts()
	if err != nil {
		return models.Session{}, err
	}
	for _, a := range accounts {
		if a.Email == email && a.Password == password {
			sess := sessionFromAccount(a)
			svc.mirrorSession(sess)
			logger.Info.Printf("[AccountService.SignIn] %s signed in (role=%s)", email, a.Role)
			return sess, nil
		}
	}
	logger.Warn.Printf("[AccountService.SignIn] failed attempt for %s", email)
	return models.Session{}, ErrInvalidCredentials
}

// SignInWithProvider completes an external-provider sign-in from a verified
// profile. Non-institutional emails are rejected; a missing local account is
// auto-provisioned (empty password, role snapshot from the bootstrap rule);
// a changed provider avatar refreshes the stored one.
func (svc *AccountService) SignInWithProvider(profile identity.Profile) (models.Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if !models.IsStudentEmail(profile.Email) {
		logger.Warn.Printf("[AccountService.SignInWithProvider] rejected email %s", profile.Email)
		return models.Session{}, ErrInvalidEmail
	}

	accounts, err := svc.loadAccounts()
	if err != nil {
		return models.Session{}, err
	}

	idx := -1
	for i, a := range accounts {
		if a.Email == profile.Email {
			idx = i
			break
		}
	}

	if idx == -1 {
		studentID := models.StudentIDFromEmail(profile.Email)
		account := models.Account{
			Name:      profile.Name,
			Email:     profile.Email,
			Password:  "",
			Role:      models.DeriveRole(studentID),
			StudentID: studentID,
			Avatar:    profile.AvatarURL,
		}
		accounts = append(accounts, account)
		if err := svc.saveAccounts(accounts); err != nil {
			return models.Session{}, err
		}
		logger.Info.Printf("[AccountService.SignInWithProvider] provisioned %s (role=%s)", account.Email, account.Role)
		idx = len(accounts) - 1
	} else if profile.AvatarURL != "" && accounts[idx].Avatar != profile.AvatarURL {
		accounts[idx].Avatar = profile.AvatarURL
		if err := svc.saveAccounts(accounts); err != nil {
			return models.Session{}, err
		}
	}

	sess := sessionFromAccount(accounts[idx])
	svc.mirrorSession(sess)
	return sess, nil
}

// SignUp validates the form, appends the account and signs the new user in.
// The role is derived once here and never recomputed.
func (svc *AccountService) SignUp(form SignUpForm) (models.Session, error) {
	if err := form.Validate(); err != nil {
		return models.Session{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	accounts, err := svc.loadAccounts()
	if err != nil {
		return models.Session{}, err
	}
	for _, a := range accounts {
		if a.Email == form.Email {
			return models.Session{}, ErrEmailTaken
		}
	}

	studentID := models.StudentIDFromEmail(form.Email)
	account := models.Account{
		Name:      form.Name,
		Email:     form.Email,
		Password:  form.Password,
		Role:      models.DeriveRole(studentID),
		StudentID: studentID,
	}
	if err := svc.saveAccounts(append(accounts, account)); err != nil {
		return models.Session{}, err
	}

	sess := sessionFromAccount(account)
	svc.mirrorSession(sess)
	logger.Info.Printf("[AccountService.SignUp] created %s (role=%s)", account.Email, account.Role)
	return sess, nil
}

// updateAccount applies mutate to the named account record and returns the
// refreshed session projection for the caller to write back to its cookie.
func (svc *AccountService) updateAccount(email string, mutate func(*models.Account)) (models.Session, error) {
	if email == "" {
		return models.Session{}, ErrNoSession
	}
	accounts, err := svc.loadAccounts()
	if err != nil {
		return models.Session{}, err
	}
	for i := range accounts {
		if accounts[i].Email == email {
			mutate(&accounts[i])
			if err := svc.saveAccounts(accounts); err != nil {
				return models.Session{}, err
			}
			return sessionFromAccount(accounts[i]), nil
		}
	}
	return models.Session{}, ErrAccountNotFound
}

// UpdateProfile renames the named account and returns the refreshed session.
func (svc *AccountService) UpdateProfile(email, name string) (models.Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.updateAccount(email, func(a *models.Account) { a.Name = name })
}

// UpdateAvatar sets or clears the avatar on the named account and returns the
// refreshed session.
func (svc *AccountService) UpdateAvatar(email, avatar string) (models.Session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.updateAccount(email, func(a *models.Account) { a.Avatar = avatar })
}

// ChangePassword overwrites the stored password only when the old one
// matches. A failed attempt leaves the stored password untouched.
func (svc *AccountService) ChangePassword(email, oldPassword, newPassword string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if email == "" {
		return ErrNoSession
	}
	accounts, err := svc.loadAccounts()
	if err != nil {
		return err
	}
	for i := range accounts {
		if accounts[i].Email == email {
			if accounts[i].Password != oldPassword {
				return ErrWrongPassword
			}
			accounts[i].Password = newPassword
			return svc.saveAccounts(accounts)
		}
	}
	return ErrAccountNotFound
}

// SignOut clears the session mirror when it belongs to the named account.
// Idempotent; somebody else's mirror entry is left alone.
func (svc *AccountService) SignOut(email string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if email == "" {
		return nil
	}
	var mirrored models.Session
	if err := svc.store.Read(storage.KeySession, &mirrored); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	if mirrored.Email != email {
		return nil
	}
	logger.Info.Printf("[AccountService.SignOut] %s signed out", email)
	return svc.store.Delete(storage.KeySession)
}
