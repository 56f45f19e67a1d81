// Package identity integrates the external identity provider used for
// alternate sign-in.
// File: identity/provider.go
package identity

import (
	"context"
	"errors"
)

// ErrVerification covers every provider-side failure (cancelled sign-in,
// invalid token, audience mismatch). Handlers surface it as one generic
// message and sign the user back out of the provider.
var ErrVerification = errors.New("identity: token verification failed")

// Profile is what the provider hands back after a successful sign-in.
type Profile struct {
	Email     string
	Name      string
	AvatarURL string
}

// Provider verifies an interactive sign-in result and extracts the profile.
type Provider interface {
	Verify(ctx context.Context, idToken string) (Profile, error)
}
