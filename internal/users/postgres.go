package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// DBTX は *sql.DB と *sql.Tx の共通部分です。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore は PostgreSQL にユーザーを保存します。
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// storableText は PostgreSQL の text 型に格納できる文字列かどうかを返します。
// NUL と不正な UTF-8 は SQLSTATE 22021 で拒否されます。
func storableText(v string) bool {
	return utf8.ValidString(v) && !strings.ContainsRune(v, 0)
}

const selectUserColumns = `SELECT id, user_name, first_name, last_name, password_hash, email, is_admin, created_at FROM users`

// GetUserByUsername はユーザー名の完全一致で検索します。存在しない場合は nil を返します。
// PostgreSQL の text に格納できない名前は登録され得ないため、問い合わせずに nil を返します。
func (s *PostgresStore) GetUserByUsername(ctx context.Context, userName string) (*User, error) {
	if !storableText(userName) {
		return nil, nil
	}
	user, err := s.scanOne(ctx, selectUserColumns+` WHERE user_name = $1`, userName)
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

// GetUserByID は ID で検索します。存在しない場合は nil を返します。
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	normalized, err := parseID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.scanOne(ctx, selectUserColumns+` WHERE id = $1`, normalized)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// AddUser はユーザーを登録します。ユーザー名の一意性は UNIQUE 制約で保証されます。
func (s *PostgresStore) AddUser(ctx context.Context, in NewUser) (*User, error) {
	user := in.build()
	const q = `INSERT INTO users (id, user_name, first_name, last_name, password_hash, email, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, q,
		user.ID, user.UserName, user.FirstName, user.LastName, user.Password, user.Email, user.IsAdmin, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) scanOne(ctx context.Context, query string, arg any) (*User, error) {
	var (
		user  User
		email sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.UserName,
		&user.FirstName,
		&user.LastName,
		&user.Password,
		&email,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.Email = email.String
	return &user, nil
}
