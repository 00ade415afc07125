package entity

import (
	"time"
)

type User struct {
	ID         string `json:"id" firestore:"id"`
	Email      string `json:"email" firestore:"email"`
	FirstName  string `json:"first_name" firestore:"firstName"`
	LastName   string `json:"last_name" firestore:"lastName"`
	University string `json:"university,omitempty" firestore:"university,omitempty"`
	Phone      string `json:"phone,omitempty" firestore:"phone,omitempty"`

	Verified bool `json:"verified" firestore:"verified"`
	Enabled  bool `json:"enabled" firestore:"enabled"`
	Locked   bool `json:"locked" firestore:"locked"`

	// Zero values mean "never expires".
	AccountExpiresAt    time.Time `json:"account_expires_at,omitempty" firestore:"accountExpiresAt,omitempty"`
	CredentialsExpireAt time.Time `json:"credentials_expire_at,omitempty" firestore:"credentialsExpireAt,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// CanConnect reports whether the account may hold an authenticated realtime
// session: enabled, not locked, account and credentials unexpired.
func (u *User) CanConnect(now time.Time) bool {
	if !u.Enabled || u.Locked {
		return false
	}
	if !u.AccountExpiresAt.IsZero() && now.After(u.AccountExpiresAt) {
		return false
	}
	if !u.CredentialsExpireAt.IsZero() && now.After(u.CredentialsExpireAt) {
		return false
	}
	return true
}
