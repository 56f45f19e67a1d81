// services/qrcode_service.go
package services

import (
	"errors"
	"os"

	"github.com/skip2/go-qrcode"
)

// QREncoder matches qrcode.Encode and exists so tests can stub the encoder.
type QREncoder func(content string, level qrcode.RecoveryLevel, size int) ([]byte, error)

// GenerateShiftSignupQR creates a QR code PNG pointing at the duty-shift
// sign-up page, for printing on the duty-desk notice board.
func GenerateShiftSignupQR(size int, encode QREncoder) ([]byte, error) {
	if size <= 0 {
		return nil, errors.New("invalid size: must be positive")
	}
	if encode == nil {
		encode = qrcode.Encode
	}

	applicationURL := os.Getenv("APPLICATION_URL")
	if applicationURL == "" {
		applicationURL = "http://localhost:8080" // Default for local testing
	}

	return encode(applicationURL+"/duty/signup", qrcode.Medium, size)
}
