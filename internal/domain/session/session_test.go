package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-client/internal/domain/session"
	"storefront-client/internal/infra/memory"
)

type failingStorage struct {
	*memory.Storage
	failKey string
}

func (f failingStorage) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Storage.Set(ctx, key, value)
}

func TestOpen_LoadsPreviousSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	require.NoError(t, store.Set(ctx, session.KeyAccessToken, "Bearer A1"))
	require.NoError(t, store.Set(ctx, session.KeyRefreshToken, "R1"))
	require.NoError(t, store.Set(ctx, session.KeyProfile, `{"_id":"u1"}`))

	sess, err := session.Open(ctx, store)
	require.NoError(t, err)

	assert.Equal(t, session.StateAuthenticated, sess.State())
	assert.Equal(t, session.Credentials{AccessToken: "Bearer A1", RefreshToken: "R1"}, sess.Credentials())
	assert.JSONEq(t, `{"_id":"u1"}`, string(sess.Profile()))
}

func TestOpen_EmptyStorageIsAnonymous(t *testing.T) {
	sess, err := session.Open(context.Background(), memory.NewStorage())
	require.NoError(t, err)
	assert.Equal(t, session.StateAnonymous, sess.State())
	assert.Nil(t, sess.Profile())
}

func TestOpen_NilStorage(t *testing.T) {
	var store *memory.Storage
	_, err := session.Open(context.Background(), store)
	assert.Error(t, err)
}

func TestSignIn_MirrorsToStorage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	sess, err := session.Open(ctx, store)
	require.NoError(t, err)

	var events []session.Event
	cancel := sess.Subscribe(func(ev session.Event) { events = append(events, ev) })
	defer cancel()

	profile := json.RawMessage(`{"_id":"u1","email":"a@b.c"}`)
	require.NoError(t, sess.SignIn(ctx, session.Credentials{AccessToken: "A1", RefreshToken: "R1"}, profile))

	snap := store.Snapshot()
	assert.Equal(t, "A1", snap[session.KeyAccessToken])
	assert.Equal(t, "R1", snap[session.KeyRefreshToken])
	assert.Equal(t, string(profile), snap[session.KeyProfile])
	require.Len(t, events, 1)
	assert.Equal(t, session.EventSignedIn, events[0].Type)
	assert.Equal(t, session.StateAuthenticated, events[0].State)
}

func TestSignIn_StorageFailureLeavesSessionEmpty(t *testing.T) {
	ctx := context.Background()
	store := failingStorage{Storage: memory.NewStorage(), failKey: session.KeyRefreshToken}
	sess, err := session.Open(ctx, store)
	require.NoError(t, err)

	err = sess.SignIn(ctx, session.Credentials{AccessToken: "A1", RefreshToken: "R1"}, nil)
	require.Error(t, err)
	assert.Equal(t, session.StateAnonymous, sess.State())
	assert.Empty(t, store.Snapshot())
}

func TestSetAccessToken_KeepsRefreshToken(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	sess, err := session.Open(ctx, store)
	require.NoError(t, err)
	require.NoError(t, sess.SignIn(ctx, session.Credentials{AccessToken: "A1", RefreshToken: "R1"}, nil))

	require.NoError(t, sess.SetAccessToken(ctx, "R1", "A2"))

	assert.Equal(t, session.Credentials{AccessToken: "A2", RefreshToken: "R1"}, sess.Credentials())
	assert.Equal(t, "A2", store.Snapshot()[session.KeyAccessToken])
}

func TestSetAccessToken_StorageFailureKeepsOldToken(t *testing.T) {
	ctx := context.Background()
	store := failingStorage{Storage: memory.NewStorage()}
	sess, err := session.Open(ctx, store)
	require.NoError(t, err)
	require.NoError(t, sess.SignIn(ctx, session.Credentials{AccessToken: "A1", RefreshToken: "R1"}, nil))

	store.failKey = session.KeyAccessToken
	sess2, err := session.Open(ctx, store)
	require.NoError(t, err)
	require.Error(t, sess2.SetAccessToken(ctx, "R1", "A2"))
	assert.Equal(t, "A1", sess2.AccessToken())
}

func TestSetAccessToken_RejectedAfterSessionChanged(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	sess, err := session.Open(ctx, store)
	require.NoError(t, err)
	require.NoError(t, sess.SignIn(ctx, session.Credentials{AccessToken: "A1", RefreshToken: "R1"}, nil))
	require.NoError(t, sess.SignOut(ctx))

	assert.ErrorIs(t, sess.SetAccessToken(ctx, "R1", "A2"), session.ErrSessionChanged)
	assert.Equal(t, session.StateAnonymous, sess.State())
	assert.Empty(t, store.Snapshot())

	// 換了一組憑證後，舊 refresh token 換回的 token 也不能覆蓋。
	require.NoError(t, sess.SignIn(ctx, session.Credentials{AccessToken: "B1", RefreshToken: "R2"}, nil))
	assert.ErrorIs(t, sess.SetAccessToken(ctx, "R1", "A2"), session.ErrSessionChanged)
	assert.Equal(t, "B1", sess.AccessToken())
}

func TestInvalidate_PublishesOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	sess, err := session.Open(ctx, store)
	require.NoError(t, err)
	require.NoError(t, sess.SignIn(ctx, session.Credentials{AccessToken: "A1", RefreshToken: "R1"}, json.RawMessage(`{}`)))

	invalidated := 0
	sess.Subscribe(func(ev session.Event) {
		if ev.Type == session.EventInvalidated {
			invalidated++
		}
	})

	require.NoError(t, sess.Invalidate(ctx))
	require.NoError(t, sess.Invalidate(ctx))

	assert.Equal(t, 1, invalidated)
	assert.Empty(t, store.Snapshot())
	assert.Equal(t, session.StateAnonymous, sess.State())
}

func TestSignOut_ClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStorage()
	sess, err := session.Open(ctx, store)
	require.NoError(t, err)
	require.NoError(t, sess.SignIn(ctx, session.Credentials{AccessToken: "A1", RefreshToken: "R1"}, json.RawMessage(`{"_id":"u1"}`)))

	require.NoError(t, sess.SignOut(ctx))

	assert.Empty(t, store.Snapshot())
	assert.True(t, sess.Credentials().Empty())
	assert.ErrorIs(t, sess.DecodeProfile(&struct{}{}), session.ErrKeyNotFound)
}

func TestSubscribe_Cancel(t *testing.T) {
	ctx := context.Background()
	sess, err := session.Open(ctx, memory.NewStorage())
	require.NoError(t, err)

	calls := 0
	cancel := sess.Subscribe(func(session.Event) { calls++ })
	cancel()
	require.NoError(t, sess.SignIn(ctx, session.Credentials{AccessToken: "A1"}, nil))
	assert.Zero(t, calls)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ANONYMOUS", session.StateAnonymous.String())
	assert.Equal(t, "AUTHENTICATED", session.StateAuthenticated.String())
	assert.Equal(t, "REFRESHING", session.StateRefreshing.String())
}
