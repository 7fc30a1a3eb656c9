package identity

import (
	"time"

	"github.com/google/uuid"

	"example.com/networth-optimizer/web/internal/models"
)

type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

type User struct {
	ID           uuid.UUID    `json:"id"`
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// Model returns the read-only mirror kept in the server session.
func (u User) Model() models.User {
	return models.User{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.UserMetadata.FullName,
	}
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// Expiry returns the absolute expiry of the access token.
func (s Session) Expiry(now time.Time) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	if s.ExpiresIn > 0 {
		return now.Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return time.Time{}
}

type SignUpParams struct {
	Email    string
	Password string
	FullName string
}

// SignUpResult carries a session when the provider confirms accounts
// immediately; otherwise only the user is set and email confirmation is pending.
type SignUpResult struct {
	User    User
	Session *Session
}

type UserUpdate struct {
	Password *string
	FullName *string
}

type credentialsRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Data     *UserMetadata `json:"data,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type recoverRequest struct {
	Email string `json:"email"`
}

type updateRequest struct {
	Password *string       `json:"password,omitempty"`
	Data     *UserMetadata `json:"data,omitempty"`
}

type signUpResponse struct {
	Session
	ID    uuid.UUID    `json:"id"`
	Email string       `json:"email"`
	Meta  UserMetadata `json:"user_metadata"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
}
