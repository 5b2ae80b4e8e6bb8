package model

import "time"

// Session is the signed-in user's bearer credential.
// A non-empty Token means authenticated.
type Session struct {
	ExpiresAt *time.Time
	Token     string
	TokenType string
	Username  string
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// LoginResponse is the body returned by the login endpoint.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}
