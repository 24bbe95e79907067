package account_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frs/profile-service/internal/account"
	"frs/profile-service/internal/db"
)

// takenLinker treats every handle in taken as already registered.
type takenLinker map[string]bool

func (l takenLinker) CreateAccount(context.Context, string, string, string, string, string, string) (int64, error) {
	return 0, errors.New("not implemented")
}

func (l takenLinker) FindByEmail(context.Context, string) (*account.Account, error) {
	return nil, account.ErrNotFound
}

func (l takenLinker) AccountExists(_ context.Context, loginOrEmail string) (bool, error) {
	return l[loginOrEmail], nil
}

func TestDeriveLogin(t *testing.T) {
	cases := []struct {
		name              string
		first, last, mail string
		taken             []string
		want              string
	}{
		{"first.last", "John", "Smith", "j@x.com", nil, "john.smith"},
		{"strips punctuation", "Mary-Ann", "O'Neil", "", nil, "maryann.oneil"},
		{"first only", "Cher", "", "", nil, "cher"},
		{"email local part", "", "", "Sales.Team@x.com", nil, "sales.team"},
		{"fallback", "", "", "", nil, "profile"},
		{"suffix on collision", "John", "Smith", "", []string{"john.smith", "john.smith1"}, "john.smith2"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			taken := takenLinker{}
			for _, h := range c.taken {
				taken[h] = true
			}
			got, err := account.DeriveLogin(context.Background(), taken, c.first, c.last, c.mail)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestPlaceholderEmail(t *testing.T) {
	assert.Equal(t, "jane.doe@placeholder.invalid", account.PlaceholderEmail("Jane", "Doe"))
	assert.Equal(t, "jane@placeholder.invalid", account.PlaceholderEmail(" Jane ", ""))

	anon := account.PlaceholderEmail("", "")
	assert.True(t, strings.HasPrefix(anon, "profile-"), anon)
	assert.True(t, account.IsPlaceholderEmail(anon))
	assert.False(t, account.IsPlaceholderEmail("jane@example.com"))
}

func TestDerivePlaceholderEmail_Suffixes(t *testing.T) {
	taken := takenLinker{"jane.doe@placeholder.invalid": true}
	got, err := account.DerivePlaceholderEmail(context.Background(), taken, "Jane", "Doe")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe1@placeholder.invalid", got)
}

func TestGeneratePassword(t *testing.T) {
	a, err := account.GeneratePassword()
	require.NoError(t, err)
	b, err := account.GeneratePassword()
	require.NoError(t, err)
	assert.Len(t, a, 24)
	assert.NotEqual(t, a, b)
}

func TestSQLiteLinker(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	l := account.NewSQLiteLinker(conn)

	id, err := l.CreateAccount(ctx, "jane.doe", "Jane@X.com", "s3cret", account.DefaultRole, "Jane", "Doe")
	require.NoError(t, err)
	assert.NotZero(t, id)

	for _, key := range []string{"jane.doe", "jane@x.com", "JANE@X.COM"} {
		ok, err := l.AccountExists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, key)
	}
	ok, err := l.AccountExists(ctx, "someone.else")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.CreateAccount(ctx, "jane.doe", "other@x.com", "pw", account.DefaultRole, "", "")
	assert.ErrorIs(t, err, account.ErrExists)
	assert.Contains(t, err.Error(), `login "jane.doe"`)
	_, err = l.CreateAccount(ctx, "jane2", "Jane@X.com", "pw", account.DefaultRole, "", "")
	assert.ErrorIs(t, err, account.ErrExists)
	assert.Contains(t, err.Error(), `email "jane@x.com"`)

	acct, err := l.FindByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, id, acct.ID)
	assert.Equal(t, "jane.doe", acct.Login)
	assert.Equal(t, "jane@x.com", acct.Email)

	hash, err := l.PasswordHash(ctx, "jane.doe")
	require.NoError(t, err)
	assert.True(t, account.CheckPassword(hash, "s3cret"))
	assert.False(t, account.CheckPassword(hash, "wrong"))

	_, err = l.FindByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, account.ErrNotFound)
}
