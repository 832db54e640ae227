package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chat-rooms-service/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const userColumns = `id, full_name, email, profile_image, password, is_admin, is_active, created_at, updated_at`

// UserUpdate carries the optional fields of a partial profile update.
// Nil fields are left untouched.
type UserUpdate struct {
	FullName *string
	Email    *string
}

// UserRepository abstracts account persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, fullName string, email string, passwordHash string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, userID int64, update UserUpdate) (models.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) (models.User, error)
	UpdateProfileImage(ctx context.Context, userID int64, imageURL string) (models.User, error)
	SetActive(ctx context.Context, userID int64, active bool) (models.User, error)
	SetAdmin(ctx context.Context, userID int64, admin bool) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts an account row.
func (r *UserRepo) CreateUser(ctx context.Context, fullName string, email string, passwordHash string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (full_name, email, password)
        VALUES ($1, $2, $3) RETURNING `+userColumns, fullName, email, passwordHash).
		StructScan(&user)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return models.User{}, ErrEmailTaken
	}
	return user, err
}

// GetUserByEmail fetches an account by email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByID fetches an account by id.
func (r *UserRepo) GetUserByID(ctx context.Context, userID int64) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// ListUsers returns every account, oldest first.
func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	return users, err
}

// UpdateUser applies a partial profile update. The SET clause is
// assembled from a fixed set of optional fields, each mapped to a named
// column.
func (r *UserRepo) UpdateUser(ctx context.Context, userID int64, update UserUpdate) (models.User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{userID}

	if update.FullName != nil {
		args = append(args, *update.FullName)
		sets = append(sets, fmt.Sprintf("full_name = $%d", len(args)))
	}
	if update.Email != nil {
		args = append(args, *update.Email)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + userColumns
	var user models.User
	err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return models.User{}, ErrEmailTaken
	}
	return user, err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `UPDATE users SET password=$2, updated_at=NOW()
        WHERE id=$1 RETURNING `+userColumns, userID, passwordHash).
		StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// UpdateProfileImage replaces the account's profile image URL.
func (r *UserRepo) UpdateProfileImage(ctx context.Context, userID int64, imageURL string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `UPDATE users SET profile_image=$2, updated_at=NOW()
        WHERE id=$1 RETURNING `+userColumns, userID, imageURL).
		StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// SetActive toggles the account's active flag. A deactivated account
// can no longer log in.
func (r *UserRepo) SetActive(ctx context.Context, userID int64, active bool) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `UPDATE users SET is_active=$2, updated_at=NOW()
        WHERE id=$1 RETURNING `+userColumns, userID, active).
		StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// SetAdmin grants or revokes the app-wide admin flag.
func (r *UserRepo) SetAdmin(ctx context.Context, userID int64, admin bool) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `UPDATE users SET is_admin=$2, updated_at=NOW()
        WHERE id=$1 RETURNING `+userColumns, userID, admin).
		StructScan(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
