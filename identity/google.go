// Package identity integrates the external identity provider used for
// alternate sign-in.
// File: identity/google.go
package identity

import (
	"context"
	"os"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"

	"fme-portal/logger"
)

// GoogleProvider verifies Google ID tokens against the portal's OAuth client
// ID and maps the claim set to a Profile.
type GoogleProvider struct {
	clientID string
}

// NewGoogleProvider reads the client ID from GOOGLE_CLIENT_ID.
func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{clientID: os.Getenv("GOOGLE_CLIENT_ID")}
}

// Verify implements Provider.
func (p *GoogleProvider) Verify(_ context.Context, idToken string) (Profile, error) {
	v := googleAuthIDTokenVerifier.Verifier{}
	if err := v.VerifyIDToken(idToken, []string{p.clientID}); err != nil {
		logger.Warn.Printf("[GoogleProvider.Verify] ID token rejected: %v", err)
		return Profile{}, ErrVerification
	}

	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		logger.Error.Printf("[GoogleProvider.Verify] failed to decode ID token: %v", err)
		return Profile{}, ErrVerification
	}

	return Profile{
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}
