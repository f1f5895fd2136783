package models

// CredentialErrorCode identifies the cause of a failed sign-in attempt.
// These codes never reach the client directly; they are mapped through
// CredentialErrorMessage so responses cannot leak whether an account exists.
type CredentialErrorCode string

const (
	CredentialErrorInvalidEmail  CredentialErrorCode = "auth/invalid-email"
	CredentialErrorUserDisabled  CredentialErrorCode = "auth/user-disabled"
	CredentialErrorUserNotFound  CredentialErrorCode = "auth/user-not-found"
	CredentialErrorWrongPassword CredentialErrorCode = "auth/wrong-password"
)

// credentialMessages is the fixed lookup table of recognized sign-in failure
// causes. Not-found and wrong-password intentionally share the same message.
var credentialMessages = map[CredentialErrorCode]string{
	CredentialErrorInvalidEmail:  "Invalid email address",
	CredentialErrorUserDisabled:  "This account has been disabled",
	CredentialErrorUserNotFound:  "Invalid credentials",
	CredentialErrorWrongPassword: "Invalid credentials",
}

const credentialFallbackMessage = "Login failed. Please try again"

// CredentialErrorMessage maps a failure code to its user-facing string.
// Unrecognized codes fall back to a generic message.
func CredentialErrorMessage(code CredentialErrorCode) string {
	if msg, ok := credentialMessages[code]; ok {
		return msg
	}
	return credentialFallbackMessage
}

// NewCredentialError builds the unauthorized error presented for a failed
// sign-in, carrying only the mapped user-facing message.
func NewCredentialError(code CredentialErrorCode) *AppError {
	return NewUnauthorizedError(CredentialErrorMessage(code))
}
