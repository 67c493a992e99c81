package models

import "time"

// User owns invoices; every stored invoice is scoped to exactly one user.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"unique;not null;index" json:"email"`
	Password  string `gorm:"not null" json:"-"` // bcrypt hash
	Name      string `json:"name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
