package users

import (
	"context"
	"errors"
	"fmt"
)

type seedStore interface {
	GetUserByUsername(ctx context.Context, userName string) (*User, error)
	AddUser(ctx context.Context, in NewUser) (*User, error)
}

// EnsureAdmin は管理者ユーザーが存在しなければ作成します。
// 作成した場合は true を返します。既存ユーザーの権限は変更しません。
func EnsureAdmin(ctx context.Context, store seedStore, userName, passwordHash string) (bool, error) {
	existing, err := store.GetUserByUsername(ctx, userName)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	_, err = store.AddUser(ctx, NewUser{
		UserName:     userName,
		FirstName:    "Node Goat",
		LastName:     "Admin",
		PasswordHash: passwordHash,
		IsAdmin:      true,
	})
	if errors.Is(err, ErrUsernameTaken) {
		// 別プロセスが先に作成した
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return true, nil
}
