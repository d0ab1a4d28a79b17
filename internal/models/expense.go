package models

import "time"

// Expense represents a single categorized expense entry.
// Amount is in the smallest currency unit.
type Expense struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Amount   int64     `json:"amount"`
	Category string    `json:"category"`
	Day      time.Time `json:"day"`
	UserID   int64     `json:"user_id"`
}

// User represents a user account.
type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	ResetToken     *string    `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Session represents a user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Categories is the fixed set of valid expense categories.
var Categories = []string{
	"food",
	"entertaining",
	"clothes",
	"knowledge",
	"transportation",
	"home_supplies",
	"healthcare",
	"housing",
}

// ValidCategory reports whether c is a member of Categories.
func ValidCategory(c string) bool {
	for _, cat := range Categories {
		if cat == c {
			return true
		}
	}
	return false
}
