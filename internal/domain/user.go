// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// NewUser assigns a fresh relay-side identity.
func NewUser() *User {
	id := UserID(uuid.NewString())
	return &User{ID: id, Username: DisplayName(id)}
}

// DisplayName derives the short chat handle from a user id,
// e.g. "User 3f2a".
func DisplayName(id UserID) string {
	s := string(id)
	if len(s) > 4 {
		s = s[len(s)-4:]
	}
	return fmt.Sprintf("User %s", s)
}

func (u *User) SetUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.Username = username
	return nil
}
