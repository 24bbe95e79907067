// Package account creates the login accounts that imported profiles are
// linked to, and derives their handles and placeholder addresses.
package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultRole is assigned when an import row names no role.
const DefaultRole = "loan_officer"

// PlaceholderDomain is used for generated addresses of rows without an email.
const PlaceholderDomain = "placeholder.invalid"

const maxLoginAttempts = 1000

// ErrExists is returned when the login or email is already taken.
var ErrExists = errors.New("account already exists")

// ErrNotFound is returned when no account matches a lookup.
var ErrNotFound = errors.New("account not found")

// Linker creates accounts and answers uniqueness questions about them.
type Linker interface {
	CreateAccount(ctx context.Context, login, email, password, role, firstName, lastName string) (int64, error)
	AccountExists(ctx context.Context, loginOrEmail string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// existsError names the value that collided. column is "login" or "email";
// anything else reports both.
func existsError(column, login, email string) error {
	switch column {
	case "login":
		return fmt.Errorf("%w: login %q", ErrExists, login)
	case "email":
		return fmt.Errorf("%w: email %q", ErrExists, strings.ToLower(email))
	}
	return fmt.Errorf("%w: login %q or email %q", ErrExists, login, strings.ToLower(email))
}

// Account is a stored login account.
type Account struct {
	ID        int64  `db:"id" json:"id"`
	Login     string `db:"login" json:"login"`
	Email     string `db:"email" json:"email"`
	Role      string `db:"role" json:"role"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
}

// sanitize lower-cases s and keeps only characters valid in a login handle.
func sanitize(s string, allowed string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || strings.ContainsRune(allowed, r) {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), allowed)
}

// PlaceholderEmail builds "first.last@placeholder.invalid". Rows with no
// usable name get a random local part instead.
func PlaceholderEmail(firstName, lastName string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{firstName, lastName} {
		if s := sanitize(p, ""); s != "" {
			parts = append(parts, s)
		}
	}
	local := strings.Join(parts, ".")
	if local == "" {
		local = "profile-" + uuid.NewString()[:8]
	}
	return local + "@" + PlaceholderDomain
}

// DerivePlaceholderEmail returns a PlaceholderEmail not yet used by any
// account, appending 1, 2, … to the local part on collision.
func DerivePlaceholderEmail(ctx context.Context, linker Linker, firstName, lastName string) (string, error) {
	base := PlaceholderEmail(firstName, lastName)
	local := strings.TrimSuffix(base, "@"+PlaceholderDomain)
	email := base
	for i := 1; i <= maxLoginAttempts; i++ {
		exists, err := linker.AccountExists(ctx, email)
		if err != nil {
			return "", fmt.Errorf("check email %q: %w", email, err)
		}
		if !exists {
			return email, nil
		}
		email = local + strconv.Itoa(i) + "@" + PlaceholderDomain
	}
	return "", fmt.Errorf("no free placeholder email for %q after %d attempts", local, maxLoginAttempts)
}

// IsPlaceholderEmail reports whether email was produced by PlaceholderEmail.
func IsPlaceholderEmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), "@"+PlaceholderDomain)
}

// loginBase picks the un-suffixed handle: first.last, else the email local
// part, else "profile".
func loginBase(firstName, lastName, email string) string {
	first := sanitize(firstName, "")
	last := sanitize(lastName, "")
	switch {
	case first != "" && last != "":
		return first + "." + last
	case first != "" || last != "":
		return first + last
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		if local := sanitize(email[:at], "._-"); local != "" {
			return local
		}
	}
	return "profile"
}

// DeriveLogin returns a handle not yet taken according to linker, appending
// 1, 2, … to the base handle on collision.
func DeriveLogin(ctx context.Context, linker Linker, firstName, lastName, email string) (string, error) {
	base := loginBase(firstName, lastName, email)
	login := base
	for i := 1; i <= maxLoginAttempts; i++ {
		exists, err := linker.AccountExists(ctx, login)
		if err != nil {
			return "", fmt.Errorf("check login %q: %w", login, err)
		}
		if !exists {
			return login, nil
		}
		login = base + strconv.Itoa(i)
	}
	return "", fmt.Errorf("no free login for %q after %d attempts", base, maxLoginAttempts)
}

// GeneratePassword returns a random password for accounts created on the
// profile's behalf; the owner resets it on first sign-in.
func GeneratePassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// hashPassword bcrypt-hashes a plain password for storage.
func hashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
