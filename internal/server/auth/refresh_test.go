package auth

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/clock"
	"github.com/dmitrijs2005/skillauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const refreshLifetime = 72 * time.Hour

type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, errors.New("empty") }

func TestRefreshIssue_ValueAndExpiry(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock(epoch)
	m := NewRefreshManager(refreshLifetime, clk, nil)

	tok, err := m.Issue()
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(tok.Value)
	require.NoError(t, err)
	assert.Len(t, raw, RefreshTokenSize)
	assert.Equal(t, epoch.Add(refreshLifetime), tok.ExpiresAt)
}

func TestRefreshIssue_UniqueValues(t *testing.T) {
	t.Parallel()

	m := NewRefreshManager(refreshLifetime, clock.NewMock(epoch), nil)

	a, err := m.Issue()
	require.NoError(t, err)
	b, err := m.Rotate(&models.Account{RefreshToken: a.Value})
	require.NoError(t, err)

	assert.NotEqual(t, a.Value, b.Value)
}

func TestRefreshIssue_RandomFailure(t *testing.T) {
	t.Parallel()

	_, err := NewRefreshManager(refreshLifetime, clock.NewMock(epoch), emptyReader{}).Issue()
	require.Error(t, err)
}

func TestRefreshIssue_DeterministicSource(t *testing.T) {
	t.Parallel()

	src := bytes.NewReader(bytes.Repeat([]byte{1}, RefreshTokenSize))
	tok, err := NewRefreshManager(refreshLifetime, clock.NewMock(epoch), src).Issue()
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, RefreshTokenSize)), tok.Value)
}

func TestRefreshValidate(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock(epoch)
	m := NewRefreshManager(refreshLifetime, clk, nil)

	tests := []struct {
		name     string
		stored   string
		expires  time.Time
		supplied string
		want     bool
	}{
		{name: "match, one second left", stored: "tok", expires: epoch.Add(time.Second), supplied: "tok", want: true},
		{name: "match, expires exactly now", stored: "tok", expires: epoch, supplied: "tok", want: false},
		{name: "match, already expired", stored: "tok", expires: epoch.Add(-time.Hour), supplied: "tok", want: false},
		{name: "mismatch", stored: "tok", expires: epoch.Add(time.Hour), supplied: "other", want: false},
		{name: "prefix is not a match", stored: "tok", expires: epoch.Add(time.Hour), supplied: "to", want: false},
		{name: "nothing stored", stored: "", expires: epoch.Add(time.Hour), supplied: "", want: false},
		{name: "empty supplied", stored: "tok", expires: epoch.Add(time.Hour), supplied: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner := &models.Account{Mail: "a@x.edu", RefreshToken: tt.stored, RefreshTokenExpiresAt: tt.expires}
			assert.Equal(t, tt.want, m.Validate(owner, tt.supplied))
		})
	}

	assert.False(t, m.Validate(nil, "tok"))
}

func TestRefreshRevoked_NeverValidates(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock(epoch)
	m := NewRefreshManager(refreshLifetime, clk, nil)

	revoked := m.Revoked()
	owner := &models.Account{RefreshToken: revoked.Value, RefreshTokenExpiresAt: revoked.ExpiresAt}

	assert.False(t, m.Validate(owner, ""))
	assert.False(t, m.Validate(owner, "anything"))
}
