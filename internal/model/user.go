package model

import "time"

// User is a row of the users relation. PasswordHash never leaves the
// service layer.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string `json:"-"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    *time.Time
}

// Identity is what the request gates attach to a request context. TokenID
// and ExpiresAt describe the token it was verified from.
type Identity struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

type PublicUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type Profile struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin"`
}

type RegisteredUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	Token     string    `json:"token,omitempty"`
}

type LoginResult struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Username: u.Username}
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Username: u.Username, CreatedAt: u.CreatedAt, LastLogin: u.LastLogin}
}
