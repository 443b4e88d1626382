package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStores returns a Scoped store per backend kind.
func newStores(t *testing.T) map[string]*Scoped {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	db, err := OpenDatabase(ctx, "sqlite://"+filepath.Join(dir, "credentials.db"))
	require.NoError(t, err)

	return map[string]*Scoped{
		"memory": NewMemory(),
		"file":   New(NewFileBackend(filepath.Join(dir, "durable", "credentials.json"), nil), NewMemoryBackend()),
		"redis":  New(NewRedisBackend(rdb, "restauth:durable", 0), NewRedisBackend(rdb, "restauth:ephemeral", 0)),
		"sql":    New(NewSQLBackend(db, string(Durable)), NewSQLBackend(db, string(Ephemeral))),
	}
}

func TestScoped_WriteExclusivity(t *testing.T) {
	scopes := []Scope{Durable, Ephemeral}
	for name, aStore := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, first := range scopes {
				for _, second := range scopes {
					require.NoError(t, aStore.Write(ctx, &Credentials{Access: "A1", Refresh: "R1"}, first))
					assertOnly(t, aStore, first, &Credentials{Access: "A1", Refresh: "R1"})

					require.NoError(t, aStore.Write(ctx, &Credentials{Access: "A2", Refresh: "R2"}, second))
					assertOnly(t, aStore, second, &Credentials{Access: "A2", Refresh: "R2"})

					require.NoError(t, aStore.Clear(ctx))
					actual, err := aStore.Read(ctx)
					require.NoError(t, err)
					assert.Nil(t, actual)
				}
			}
		})
	}
}

func assertOnly(t *testing.T, aStore *Scoped, scope Scope, expected *Credentials) {
	t.Helper()
	ctx := context.Background()
	actual, err := aStore.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	held, err := aStore.Lookup(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, expected, held)

	other, err := aStore.Lookup(ctx, scope.Other())
	require.NoError(t, err)
	assert.Nil(t, other, "scope %v should be empty", scope.Other())

	active, ok, err := aStore.Scope(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, scope, active)
}

func TestScoped_UpdateAccess(t *testing.T) {
	for name, aStore := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.ErrorIs(t, aStore.UpdateAccess(ctx, "R1", "A2"), ErrNoCredentials)

			require.NoError(t, aStore.Write(ctx, &Credentials{Access: "A1", Refresh: "R1"}, Ephemeral))
			require.NoError(t, aStore.UpdateAccess(ctx, "R1", "A2"))
			assertOnly(t, aStore, Ephemeral, &Credentials{Access: "A2", Refresh: "R1"})

			assert.ErrorIs(t, aStore.UpdateAccess(ctx, "R1", ""), ErrInvalidCredentials)

			// a newer login replaced the pair the access token was derived from
			require.NoError(t, aStore.Write(ctx, &Credentials{Access: "B1", Refresh: "S1"}, Durable))
			assert.ErrorIs(t, aStore.UpdateAccess(ctx, "R1", "A3"), ErrSuperseded)
			assertOnly(t, aStore, Durable, &Credentials{Access: "B1", Refresh: "S1"})
		})
	}
}

func TestScoped_Rotate(t *testing.T) {
	var testCases = []struct {
		description string
		rotated     *Credentials
		expected    *Credentials
	}{
		{
			description: "rotated refresh token replaces stored one",
			rotated:     &Credentials{Access: "A2", Refresh: "R2"},
			expected:    &Credentials{Access: "A2", Refresh: "R2"},
		},
		{
			description: "missing refresh token keeps stored one",
			rotated:     &Credentials{Access: "A2"},
			expected:    &Credentials{Access: "A2", Refresh: "R1"},
		},
	}
	for _, testCase := range testCases {
		aStore := NewMemory()
		ctx := context.Background()
		require.NoError(t, aStore.Write(ctx, &Credentials{Access: "A1", Refresh: "R1"}, Durable), testCase.description)
		require.NoError(t, aStore.Rotate(ctx, "R1", testCase.rotated), testCase.description)
		assertOnly(t, aStore, Durable, testCase.expected)
	}
	assert.ErrorIs(t, NewMemory().Rotate(context.Background(), "R1", &Credentials{Access: "A2"}), ErrNoCredentials)

	superseded := NewMemory()
	require.NoError(t, superseded.Write(context.Background(), &Credentials{Access: "B1", Refresh: "S1"}, Ephemeral))
	assert.ErrorIs(t, superseded.Rotate(context.Background(), "R1", &Credentials{Access: "A2", Refresh: "R2"}), ErrSuperseded)
	assertOnly(t, superseded, Ephemeral, &Credentials{Access: "B1", Refresh: "S1"})
}

func TestScoped_Revoke(t *testing.T) {
	ctx := context.Background()
	aStore := NewMemory()
	require.NoError(t, aStore.Write(ctx, &Credentials{Access: "B1", Refresh: "S1"}, Durable))

	assert.ErrorIs(t, aStore.Revoke(ctx, "R1"), ErrSuperseded)
	assertOnly(t, aStore, Durable, &Credentials{Access: "B1", Refresh: "S1"})

	require.NoError(t, aStore.Revoke(ctx, "S1"))
	held, err := aStore.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, held)
	assert.ErrorIs(t, aStore.Revoke(ctx, "S1"), ErrNoCredentials)
}

func TestScoped_WriteValidation(t *testing.T) {
	aStore := NewMemory()
	ctx := context.Background()
	assert.ErrorIs(t, aStore.Write(ctx, nil, Durable), ErrInvalidCredentials)
	assert.ErrorIs(t, aStore.Write(ctx, &Credentials{}, Durable), ErrInvalidCredentials)
	assert.ErrorIs(t, aStore.Write(ctx, &Credentials{Access: "A1"}, Scope("cookie")), ErrInvalidScope)
	_, err := aStore.Lookup(ctx, Scope(""))
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestScoped_ReadNeverMerges(t *testing.T) {
	durable, ephemeral := NewMemoryBackend(), NewMemoryBackend()
	aStore := New(durable, ephemeral)
	ctx := context.Background()
	// simulate a foreign writer that left partial data in both backends
	require.NoError(t, durable.Save(ctx, &Credentials{Access: "A1"}))
	require.NoError(t, ephemeral.Save(ctx, &Credentials{Refresh: "R2"}))

	actual, err := aStore.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Credentials{Access: "A1"}, actual)
}

func TestParseScope(t *testing.T) {
	scope, err := ParseScope(" Durable ")
	require.NoError(t, err)
	assert.Equal(t, Durable, scope)

	scope, err = ParseScope("ephemeral")
	require.NoError(t, err)
	assert.Equal(t, Ephemeral, scope)

	_, err = ParseScope("local")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestCredentials_String(t *testing.T) {
	credentials := &Credentials{Access: "secret-access", Refresh: ""}
	text := credentials.String()
	assert.NotContains(t, text, "secret-access")
	assert.Equal(t, "Credentials<Access: redacted, Refresh: none>", text)
}

func TestTokenSource(t *testing.T) {
	ctx := context.Background()
	aStore := NewMemory()
	source := TokenSource(ctx, aStore)

	_, err := source.Token()
	assert.ErrorIs(t, err, ErrNoCredentials)

	require.NoError(t, aStore.Write(ctx, &Credentials{Access: "A1", Refresh: "R1"}, Durable))
	token, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "A1", token.AccessToken)
	assert.Equal(t, "R1", token.RefreshToken)
	assert.Equal(t, "Bearer", token.Type())
}
