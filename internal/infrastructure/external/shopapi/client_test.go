package shopapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-client/internal/domain/session"
	"storefront-client/internal/infra/memory"
	"storefront-client/internal/infrastructure/notify"
)

const testUserJSON = `{"_id":"u1","email":"a@b.c","roles":["User"]}`

// fakeBackend 模擬 storefront 後端的認證行為。
type fakeBackend struct {
	mu            sync.Mutex
	current       string
	expired       map[string]bool
	nextAccess    string
	refreshStatus int
	refreshName   string
	refreshBodies []string
	seenAuth      []string

	refreshCalls  atomic.Int32
	expiredServed atomic.Int32
	waitExpired   int32
	onRefresh     func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{expired: map[string]bool{}, nextAccess: "A2"}
}

func (b *fakeBackend) expire(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expired[token] = true
	if b.current == token {
		b.current = ""
	}
}

func (b *fakeBackend) authHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.seenAuth...)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login", "/register":
		b.mu.Lock()
		b.current = "A1"
		b.mu.Unlock()
		writeRaw(w, http.StatusOK, `{"message":"ok","data":{"access_token":"A1","refresh_token":"R1","user":`+testUserJSON+`}}`)
	case "/logout":
		writeRaw(w, http.StatusOK, `{"message":"bye","data":{"anything":true}}`)
	case "/refresh-access-token":
		b.refreshCalls.Add(1)
		raw, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.refreshBodies = append(b.refreshBodies, string(raw))
		b.mu.Unlock()
		if b.onRefresh != nil {
			b.onRefresh()
		}
		deadline := time.Now().Add(5 * time.Second)
		for b.expiredServed.Load() < b.waitExpired && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		if b.refreshStatus != 0 {
			writeRaw(w, b.refreshStatus, `{"message":"refresh rejected","data":{"name":"`+b.refreshName+`","message":"no"}}`)
			return
		}
		b.mu.Lock()
		b.current = b.nextAccess
		b.mu.Unlock()
		writeRaw(w, http.StatusOK, `{"message":"ok","data":{"access_token":"`+b.nextAccess+`"}}`)
	case "/me":
		if !b.checkAuth(w, r) {
			return
		}
		writeRaw(w, http.StatusOK, `{"message":"ok","data":`+testUserJSON+`}`)
	case "/form":
		writeRaw(w, http.StatusUnprocessableEntity, `{"message":"invalid","data":{"email":"Email is invalid"}}`)
	case "/boom":
		writeRaw(w, http.StatusInternalServerError, `{"message":"server exploded"}`)
	case "/headers":
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access":       r.Header.Get(HeaderExpireAccessToken),
			"refresh":      r.Header.Get(HeaderExpireRefreshToken),
			"content_type": r.Header.Get("Content-Type"),
		})
	default:
		writeRaw(w, http.StatusNotFound, `{"message":"not found"}`)
	}
}

func (b *fakeBackend) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	b.mu.Lock()
	b.seenAuth = append(b.seenAuth, auth)
	current := b.current
	expired := b.expired[auth]
	b.mu.Unlock()

	switch {
	case auth != "" && auth == current:
		return true
	case expired:
		b.expiredServed.Add(1)
		writeRaw(w, http.StatusUnauthorized, `{"message":"expired","data":{"name":"EXPIRED_TOKEN","message":"token expired"}}`)
	default:
		writeRaw(w, http.StatusUnauthorized, `{"message":"invalid","data":{"name":"INVALID_TOKEN","message":"bad token"}}`)
	}
	return false
}

type recorder struct {
	mu       sync.Mutex
	messages []string
	ch       chan string
}

func newRecorder() *recorder { return &recorder{ch: make(chan string, 16)} }

func (r *recorder) Notify(_ context.Context, msg string) error {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
	r.ch <- msg
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type harness struct {
	backend  *fakeBackend
	server   *httptest.Server
	storage  *memory.Storage
	session  *session.Session
	client   *Client
	notifier *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := newFakeBackend()
	ts := httptest.NewServer(b)
	t.Cleanup(ts.Close)

	store := memory.NewStorage()
	sess, err := session.Open(context.Background(), store)
	require.NoError(t, err)

	rec := newRecorder()
	c, err := New(Config{
		BaseURL:         ts.URL + "/",
		Timeout:         5 * time.Second,
		AccessTokenTTL:  10 * time.Second,
		RefreshTokenTTL: time.Hour,
	}, sess, WithNotifier(rec))
	require.NoError(t, err)

	return &harness{backend: b, server: ts, storage: store, session: sess, client: c, notifier: rec}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	err := h.client.Post(context.Background(), "login", map[string]string{"email": "a@b.c", "password": "secret"}, nil)
	require.NoError(t, err)
}

func TestNew_Validation(t *testing.T) {
	sess, err := session.Open(context.Background(), memory.NewStorage())
	require.NoError(t, err)

	_, err = New(Config{BaseURL: "http://localhost"}, nil)
	assert.Error(t, err)
	_, err = New(Config{BaseURL: "/relative"}, sess)
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "http://localhost/api"}, sess)
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoints(), c.Endpoints())
}

func TestLogin_PersistsCredentialsAndProfile(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	snap := h.storage.Snapshot()
	assert.Equal(t, "A1", snap[session.KeyAccessToken])
	assert.Equal(t, "R1", snap[session.KeyRefreshToken])
	assert.Equal(t, testUserJSON, snap[session.KeyProfile])
	assert.Equal(t, session.StateAuthenticated, h.client.State())
}

func TestRegister_PersistsCredentials(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.client.Post(context.Background(), "/register/", map[string]string{"email": "a@b.c"}, nil))
	assert.Equal(t, "A1", h.session.AccessToken())
}

func TestRequest_AttachesAccessToken(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	require.NoError(t, h.client.Get(context.Background(), "me", nil, nil))
	assert.Equal(t, []string{"A1"}, h.backend.authHeaders())
}

func TestRequest_SendsDefaultHeaders(t *testing.T) {
	h := newHarness(t)
	var got map[string]string
	require.NoError(t, h.client.Get(context.Background(), "headers", nil, &got))
	assert.Equal(t, "10", got["access"])
	assert.Equal(t, "3600", got["refresh"])
	assert.Equal(t, "application/json", got["content_type"])
}

func TestRequest_SubSecondTTLRoundsUp(t *testing.T) {
	sess, err := session.Open(context.Background(), memory.NewStorage())
	require.NoError(t, err)
	ts := httptest.NewServer(newFakeBackend())
	t.Cleanup(ts.Close)
	c, err := New(Config{
		BaseURL:         ts.URL,
		AccessTokenTTL:  500 * time.Millisecond,
		RefreshTokenTTL: 1500 * time.Millisecond,
	}, sess, WithNotifier(notify.Discard))
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, c.Get(context.Background(), "headers", nil, &got))
	assert.Equal(t, "1", got["access"])
	assert.Equal(t, "2", got["refresh"])
}

func TestTTLSeconds(t *testing.T) {
	assert.Equal(t, "1", ttlSeconds(time.Nanosecond))
	assert.Equal(t, "10", ttlSeconds(10*time.Second))
	assert.Equal(t, "11", ttlSeconds(10*time.Second+time.Millisecond))
}

func TestExpiredToken_RefreshesAndReplays(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.expire("A1")

	var out struct {
		Data struct {
			ID string `json:"_id"`
		} `json:"data"`
	}
	require.NoError(t, h.client.Get(context.Background(), "me", nil, &out))

	assert.Equal(t, "u1", out.Data.ID)
	assert.Equal(t, []string{"A1", "A2"}, h.backend.authHeaders())
	assert.Equal(t, []string{`{"refresh_token":"R1"}`}, h.backend.refreshBodies)
	assert.EqualValues(t, 1, h.client.RefreshCount())

	snap := h.storage.Snapshot()
	assert.Equal(t, "A2", snap[session.KeyAccessToken])
	assert.Equal(t, "R1", snap[session.KeyRefreshToken])
}

func TestExpiredToken_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	const n = 8
	h := newHarness(t)
	h.login(t)
	h.backend.expire("A1")
	h.backend.waitExpired = n

	var stateDuringRefresh atomic.Value
	h.backend.onRefresh = func() { stateDuringRefresh.Store(h.client.State()) }

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = h.client.Get(context.Background(), "me", nil, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, h.backend.refreshCalls.Load())
	assert.Equal(t, session.StateRefreshing, stateDuringRefresh.Load())
	assert.Equal(t, session.StateAuthenticated, h.client.State())

	replays := 0
	for _, auth := range h.backend.authHeaders() {
		if auth == "A2" {
			replays++
		}
	}
	assert.Equal(t, n, replays)
}

func TestExpiredToken_StaleTokenReplaysWithoutRefresh(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.expire("A1")
	require.NoError(t, h.client.Get(context.Background(), "me", nil, nil))

	// 以舊 token 送出的請求直接用目前的 token 重送。
	req := &Request{Method: http.MethodGet, Path: "me", Header: http.Header{"Authorization": {"A1"}}}
	_, err := h.client.Do(context.Background(), req)
	require.NoError(t, err)
	assert.EqualValues(t, 1, h.backend.refreshCalls.Load())
}

func TestRefreshFailure_FailsAllAndPurges(t *testing.T) {
	const n = 4
	h := newHarness(t)
	h.login(t)
	h.backend.expire("A1")
	h.backend.waitExpired = n
	h.backend.refreshStatus = http.StatusUnauthorized
	h.backend.refreshName = "INVALID_REFRESH_TOKEN"

	var invalidated atomic.Int32
	h.session.Subscribe(func(ev session.Event) {
		if ev.Type == session.EventInvalidated {
			invalidated.Add(1)
		}
	})

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = h.client.Get(context.Background(), "me", nil, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
	}
	assert.EqualValues(t, 1, h.backend.refreshCalls.Load())
	assert.Empty(t, h.storage.Snapshot())
	assert.Equal(t, session.StateAnonymous, h.client.State())
	assert.EqualValues(t, 1, invalidated.Load())

	// 重新登入後的下一次過期會發起新的 refresh。
	h.backend.refreshStatus = 0
	h.backend.waitExpired = 0
	h.login(t)
	h.backend.expire("A1")
	require.NoError(t, h.client.Get(context.Background(), "me", nil, nil))
	assert.EqualValues(t, 2, h.backend.refreshCalls.Load())
}

func TestRefreshFailure_ServerErrorNotifiesOnce(t *testing.T) {
	const n = 3
	h := newHarness(t)
	h.login(t)
	h.backend.expire("A1")
	h.backend.waitExpired = n
	h.backend.refreshStatus = http.StatusInternalServerError

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Error(t, h.client.Get(context.Background(), "me", nil, nil))
		}()
	}
	wg.Wait()

	select {
	case msg := <-h.notifier.ch:
		assert.Equal(t, "refresh rejected", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification")
	}
	assert.Never(t, func() bool { return h.notifier.count() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Empty(t, h.storage.Snapshot())
}

func TestRefreshEndpoint_ExpiredDoesNotLoop(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.expire("A1")
	h.backend.refreshStatus = http.StatusUnauthorized
	h.backend.refreshName = ExpiredTokenName

	err := h.client.Get(context.Background(), "me", nil, nil)
	require.Error(t, err)
	assert.True(t, IsExpiredToken(err))
	assert.EqualValues(t, 1, h.backend.refreshCalls.Load())
	assert.Empty(t, h.storage.Snapshot())

	// 直接呼叫 refresh 端點也不會觸發續期。
	h.login(t)
	err = h.client.Post(context.Background(), "refresh-access-token", map[string]string{"refresh_token": "R1"}, nil)
	require.Error(t, err)
	assert.EqualValues(t, 2, h.backend.refreshCalls.Load())
}

func TestExpiredToken_WithoutRefreshTokenPurges(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.SignIn(context.Background(), session.Credentials{AccessToken: "A1"}, nil))
	h.backend.expire("A1")

	err := h.client.Get(context.Background(), "me", nil, nil)
	require.Error(t, err)
	assert.True(t, IsExpiredToken(err))
	assert.Zero(t, h.backend.refreshCalls.Load())
	assert.Equal(t, session.StateAnonymous, h.client.State())
}

func TestValidationError_KeepsCredentials(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	err := h.client.Post(context.Background(), "form", map[string]string{"email": "x"}, nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, map[string]string{"email": "Email is invalid"}, FieldErrors(err))
	assert.Equal(t, "A1", h.storage.Snapshot()[session.KeyAccessToken])
	assert.Never(t, func() bool { return h.notifier.count() > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestServerError_NotifiesAndSurfaces(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	err := h.client.Get(context.Background(), "boom", nil, nil)
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindServer, e.Kind)
	assert.Equal(t, http.StatusInternalServerError, e.StatusCode)

	select {
	case msg := <-h.notifier.ch:
		assert.Equal(t, "server exploded", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification")
	}
	assert.Equal(t, "A1", h.session.AccessToken())
}

func TestUnauthorizedOther_PurgesSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	require.NoError(t, h.session.SetAccessToken(context.Background(), "R1", "revoked"))

	invalidated := make(chan struct{}, 1)
	h.session.Subscribe(func(ev session.Event) {
		if ev.Type == session.EventInvalidated {
			invalidated <- struct{}{}
		}
	})

	err := h.client.Get(context.Background(), "me", nil, nil)
	require.Error(t, err)
	assert.Equal(t, KindUnauthorizedOther, KindOf(err))
	assert.Empty(t, h.storage.Snapshot())
	select {
	case <-invalidated:
	default:
		t.Fatal("expected invalidated event")
	}
	assert.Zero(t, h.notifier.count())
}

func TestServerError_WaitFlushesNotifications(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	require.Error(t, h.client.Get(context.Background(), "boom", nil, nil))
	require.NoError(t, h.client.Wait(context.Background()))
	assert.Equal(t, 1, h.notifier.count())
}

func TestWait_RespectsContext(t *testing.T) {
	h := newHarness(t)
	block := make(chan struct{})
	defer close(block)
	c, err := New(Config{BaseURL: h.server.URL}, h.session, WithNotifier(blockingNotifier(block)))
	require.NoError(t, err)

	require.Error(t, c.Get(context.Background(), "boom", nil, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)
}

type blockingNotifier chan struct{}

func (n blockingNotifier) Notify(context.Context, string) error {
	<-n
	return nil
}

func TestRefresh_LogoutDuringRefreshKeepsSessionCleared(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.backend.expire("A1")

	started := make(chan struct{})
	release := make(chan struct{})
	h.backend.onRefresh = func() {
		close(started)
		<-release
	}

	errCh := make(chan error, 1)
	go func() { errCh <- h.client.Get(context.Background(), "me", nil, nil) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never started")
	}
	require.NoError(t, h.client.Post(context.Background(), "logout", nil, nil))
	require.Equal(t, session.StateAnonymous, h.client.State())
	close(release)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, session.ErrSessionChanged)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request never finished")
	}
	assert.Equal(t, session.StateAnonymous, h.client.State())
	assert.Equal(t, session.Credentials{}, h.session.Credentials())
	assert.Empty(t, h.storage.Snapshot())
	assert.Equal(t, []string{"A1"}, h.backend.authHeaders())
	require.NoError(t, h.client.Wait(context.Background()))
	assert.Zero(t, h.notifier.count())
}

func TestLogout_ClearsStorage(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	require.NoError(t, h.client.Post(context.Background(), "logout", nil, nil))
	assert.Empty(t, h.storage.Snapshot())
	assert.Equal(t, session.StateAnonymous, h.client.State())
}

type failingDoer struct{ err error }

func (d failingDoer) Do(*http.Request) (*http.Response, error) { return nil, d.err }

func TestNetworkError_Surfaced(t *testing.T) {
	sess, err := session.Open(context.Background(), memory.NewStorage())
	require.NoError(t, err)
	rec := newRecorder()
	cause := errors.New("connection refused")
	c, err := New(Config{BaseURL: "http://shop.invalid"}, sess, WithDoer(failingDoer{err: cause}), WithNotifier(rec))
	require.NoError(t, err)

	err = c.Get(context.Background(), "products", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindNetwork, KindOf(err))
	select {
	case msg := <-rec.ch:
		assert.Equal(t, "connection refused", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification")
	}
}

func TestWithMiddleware_RunsInsideChain(t *testing.T) {
	sess, err := session.Open(context.Background(), memory.NewStorage())
	require.NoError(t, err)
	require.NoError(t, sess.SignIn(context.Background(), session.Credentials{AccessToken: "A9"}, nil))

	var seen string
	spy := func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			seen = req.Header.Get("Authorization")
			return &Response{StatusCode: http.StatusOK, Body: []byte(`{"ok":true}`), Request: req}, nil
		}
	}
	c, err := New(Config{BaseURL: "http://shop.invalid"}, sess, WithMiddleware(spy), WithNotifier(notify.Discard))
	require.NoError(t, err)

	var out struct{ OK bool }
	require.NoError(t, c.Get(context.Background(), "anything", nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, "A9", seen)
}
