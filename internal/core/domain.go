package core

import (
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLen       = 50
	MaxCategoryLen    = 50
	MaxDescriptionLen = 255
)

type (
	// User is a registered account. Password always holds a bcrypt hash,
	// never the raw input.
	User struct {
		ID        int64
		Email     string
		Password  string
		CreatedOn time.Time
		IsAdmin   bool
	}

	// Expense is a single expense record.
	Expense struct {
		ID          int64
		Title       string
		Category    string
		Amount      float64
		Date        time.Time
		Description string
	}

	// ExpensePatch is a partial update: nil fields are left unchanged,
	// non-nil fields overwrite the stored value. This distinguishes
	// "not provided" from "explicitly cleared".
	ExpensePatch struct {
		Title       *string
		Category    *string
		Amount      *float64
		Date        *time.Time
		Description *string
	}
)

var (
	// ErrNotFound marks a lookup for an id that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail marks a registration against an email already in use.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is returned for both an unknown email and a
	// wrong password, so callers cannot tell which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyEmail    = errors.New("empty email")
	ErrEmptyPassword = errors.New("empty password")
)

// Validate checks the field limits. Lengths count characters, not bytes,
// so multi-byte titles are not cut short.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(e.Title) > MaxTitleLen {
		return errors.New("title too long (max 50 characters)")
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(e.Category) > MaxCategoryLen {
		return errors.New("category too long (max 50 characters)")
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if utf8.RuneCountInString(e.Description) > MaxDescriptionLen {
		return errors.New("description too long (max 255 characters)")
	}
	return nil
}

// Apply overwrites the fields the patch provides and leaves the rest alone.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	return e
}

// IsEmpty reports whether the patch carries no changes at all.
func (p ExpensePatch) IsEmpty() bool {
	return p.Title == nil && p.Category == nil && p.Amount == nil &&
		p.Date == nil && p.Description == nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if u.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}
