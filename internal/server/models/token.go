package models

import "time"

// AccessToken is a signed, self-contained session token. No server-side
// record of it is kept.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// RefreshToken is an opaque secret stored against its owner's account.
type RefreshToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenPair is returned by the authenticate and refresh flows.
type TokenPair struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Mail                  string
}
