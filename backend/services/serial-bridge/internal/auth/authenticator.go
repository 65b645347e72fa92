package auth

import "errors"

// ErrInvalidCredentials is returned for a wrong operator password.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Authenticator guards the operator console with a single shared password.
// A zero-value secret disables the guard entirely.
type Authenticator struct {
	passwordHash string
	hasher       Hasher
	tokens       *TokenService
}

// NewAuthenticator returns authenticator. tokens may be nil to disable auth.
func NewAuthenticator(passwordHash string, hasher Hasher, tokens *TokenService) *Authenticator {
	return &Authenticator{
		passwordHash: passwordHash,
		hasher:       hasher,
		tokens:       tokens,
	}
}

// Enabled reports whether console requests must carry a token.
func (a *Authenticator) Enabled() bool {
	return a != nil && a.tokens != nil
}

// Login checks password and returns a bearer token.
func (a *Authenticator) Login(password string) (string, error) {
	if !a.Enabled() || a.passwordHash == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	if err := a.hasher.Compare(a.passwordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.tokens.GenerateToken(OperatorRole)
}

// Verify validates a bearer token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	if !a.Enabled() {
		return nil, errors.New("auth: disabled")
	}
	return a.tokens.ValidateToken(token)
}
