package models

import (
	"database/sql"
	"time"
)

// User is an account row. Password holds the bcrypt hash and is never
// serialized.
type User struct {
	ID           int64          `db:"id" json:"id"`
	FullName     string         `db:"full_name" json:"full_name"`
	Email        string         `db:"email" json:"email"`
	ProfileImage sql.NullString `db:"profile_image" json:"profile_image"`
	Password     string         `db:"password" json:"-"`
	IsAdmin      bool           `db:"is_admin" json:"is_admin"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
