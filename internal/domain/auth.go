package domain

// ============================================================
// Auth — Request / Response types (matches LedgerOS API contract)
// ============================================================

// MinPasswordLength is the shortest password setup and change accept.
const MinPasswordLength = 4

// ResetConfirmation is the literal text the user must type to wipe all data.
const ResetConfirmation = "DELETE"

// AuthCheckResponse is the body of GET /auth/check.
type AuthCheckResponse struct {
	SetupRequired bool `json:"setup_required"`
}

// PasswordRequest is the body for POST /auth/setup and POST /auth/login.
type PasswordRequest struct {
	Password string `json:"password"`
}

// TokenResponse is what setup and login return.
type TokenResponse struct {
	Token string `json:"token"`
}

// ChangePasswordRequest is the body for POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ============================================================
// Console forms
// ============================================================

// SetupForm is the first-run password form.
type SetupForm struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate applies the shared password rules.
func (f SetupForm) Validate() error {
	return validateNewPassword(f.Password, f.ConfirmPassword)
}

// LoginForm is the login form.
type LoginForm struct {
	Password string `json:"password"`
}

// Validate rejects an empty password.
func (f LoginForm) Validate() error {
	if f.Password == "" {
		return &ErrValidation{Message: "Password is required"}
	}
	return nil
}

// ChangePasswordForm is the settings page password form.
type ChangePasswordForm struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate applies the shared password rules to the new password.
func (f ChangePasswordForm) Validate() error {
	if f.CurrentPassword == "" {
		return &ErrValidation{Message: "Current password is required"}
	}
	return validateNewPassword(f.NewPassword, f.ConfirmPassword)
}

// Request builds the upstream body.
func (f ChangePasswordForm) Request() ChangePasswordRequest {
	return ChangePasswordRequest{CurrentPassword: f.CurrentPassword, NewPassword: f.NewPassword}
}

// ResetForm guards POST /auth/reset-all-data.
type ResetForm struct {
	Confirmation string `json:"confirmation"`
}

// Validate requires the exact confirmation text.
func (f ResetForm) Validate() error {
	if f.Confirmation != ResetConfirmation {
		return &ErrValidation{Message: `Type "DELETE" to confirm`}
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if password != confirm {
		return &ErrValidation{Message: "Passwords do not match"}
	}
	if len(password) < MinPasswordLength {
		return &ErrValidation{Message: "Password must be at least 4 characters"}
	}
	return nil
}

// SessionState is what the gate decides to show.
type SessionState string

const (
	StateSetupRequired SessionState = "setup_required"
	StateLoginRequired SessionState = "login_required"
	StateAuthenticated SessionState = "authenticated"
)

// SessionStatus is the gateway's answer to GET /v1/session.
type SessionStatus struct {
	State         SessionState `json:"state"`
	SetupRequired bool         `json:"setup_required"`
	Authenticated bool         `json:"authenticated"`
}

// ConsoleLogin is returned after setup or login. AccessToken authorizes the
// browser console against this gateway; the LedgerOS token never leaves it.
type ConsoleLogin struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}
