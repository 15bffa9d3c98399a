// Package users はユーザー資格情報の永続化（取得・登録）を提供します。
package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUsernameTaken はユーザー名が既に登録済みの場合に返されます。
	ErrUsernameTaken = errors.New("username already taken")
	// ErrMalformedID はユーザーIDの形式が不正な場合に返されます。
	ErrMalformedID = errors.New("malformed user id")
)

// User は保存済みのユーザーレコードです。Password は bcrypt ハッシュです。
type User struct {
	ID        string    `json:"_id"`
	UserName  string    `json:"userName"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Password  string    `json:"password"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser は登録時の入力です。PasswordHash はハッシュ化済みの値を渡します。
type NewUser struct {
	UserName     string
	FirstName    string
	LastName     string
	PasswordHash string
	Email        string
	IsAdmin      bool
}

func (n NewUser) build() *User {
	return &User{
		ID:        uuid.NewString(),
		UserName:  n.UserName,
		FirstName: n.FirstName,
		LastName:  n.LastName,
		Password:  n.PasswordHash,
		Email:     n.Email,
		IsAdmin:   n.IsAdmin,
		CreatedAt: time.Now().UTC(),
	}
}

// parseID は ID を正規化します。UUID でなければ ErrMalformedID を返します。
func parseID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return parsed.String(), nil
}
