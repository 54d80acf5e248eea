package domain

import (
	"time"
)

const RoleAdmin = "admin"

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Nombre        string    `json:"nombre"`
	Rol           string    `json:"rol"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Rol == RoleAdmin }

// AuthResult es la respuesta de /auth/login y /auth/register.
type AuthResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}
