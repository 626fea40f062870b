// Package models defines the server-side records of the authentication core.
package models

import "time"

// Account is the persisted credential and refresh-token state of one user.
// Mail is the identity and primary key.
type Account struct {
	Mail                  string
	Salt                  []byte
	PasswordHash          []byte
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	// Version counts successful saves. Concurrent saves do not check it;
	// the last writer wins.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential is a salt together with the digest derived under it.
type Credential struct {
	Salt   []byte
	Digest []byte
}

// AccountUpdate lists the fields a flow wants persisted. Nil fields are left
// untouched by the store.
type AccountUpdate struct {
	Credential   *Credential
	RefreshToken *RefreshToken
	UpdatedAt    time.Time
}

// Apply returns a copy of a with u applied, as the store would persist it.
func (u *AccountUpdate) Apply(a Account) Account {
	if u.Credential != nil {
		a.Salt = u.Credential.Salt
		a.PasswordHash = u.Credential.Digest
	}
	if u.RefreshToken != nil {
		a.RefreshToken = u.RefreshToken.Value
		a.RefreshTokenExpiresAt = u.RefreshToken.ExpiresAt
	}
	a.UpdatedAt = u.UpdatedAt
	a.Version++
	return a
}
