package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"storefront-client/internal"
)

// State 描述目前登入狀態。
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateRefreshing:
		return "REFRESHING"
	default:
		return "ANONYMOUS"
	}
}

// EventType 為 session 變化種類。
type EventType string

const (
	EventSignedIn       EventType = "signed_in"
	EventTokenRefreshed EventType = "token_refreshed"
	EventProfileUpdated EventType = "profile_updated"
	EventSignedOut      EventType = "signed_out"
	// EventInvalidated 代表憑證失效被清除，UI 應重置所有記憶體狀態。
	EventInvalidated EventType = "invalidated"
)

// Event 會在 session 變化後送給訂閱者。
type Event struct {
	Type    EventType
	State   State
	Profile json.RawMessage
}

// Session 持有目前的憑證與使用者資料，並同步寫入 Storage。
// 所有變更都在同一把鎖內先寫 Storage 再更新記憶體。
type Session struct {
	mu      sync.RWMutex
	store   Storage
	creds   Credentials
	profile json.RawMessage

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Open 由 Storage 載入前次保存的憑證。
func Open(ctx context.Context, store Storage) (*Session, error) {
	if internal.IsNil(store) {
		return nil, errors.New("session storage is nil")
	}
	s := &Session{store: store, subs: make(map[int]func(Event))}

	access, err := getOptional(ctx, store, KeyAccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := getOptional(ctx, store, KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	profile, err := getOptional(ctx, store, KeyProfile)
	if err != nil {
		return nil, err
	}
	s.creds = Credentials{AccessToken: access, RefreshToken: refresh}
	if profile != "" {
		s.profile = json.RawMessage(profile)
	}
	return s, nil
}

func getOptional(ctx context.Context, store Storage, key string) (string, error) {
	v, err := store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return v, nil
}

// Credentials 回傳目前憑證的複本。
func (s *Session) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// AccessToken 回傳目前的 access token，未登入時為空字串。
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

// Profile 回傳快取的使用者 JSON（複本）。
func (s *Session) Profile() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	out := make(json.RawMessage, len(s.profile))
	copy(out, s.profile)
	return out
}

// DecodeProfile 將快取的使用者資料解碼到 v。
func (s *Session) DecodeProfile(v any) error {
	raw := s.Profile()
	if raw == nil {
		return ErrKeyNotFound
	}
	return json.Unmarshal(raw, v)
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if s.creds.AccessToken == "" {
		return StateAnonymous
	}
	return StateAuthenticated
}

// SignIn 保存登入/註冊取得的憑證與使用者資料。
// 任何寫入失敗時會清空 session，避免記憶體與 Storage 不一致。
func (s *Session) SignIn(ctx context.Context, creds Credentials, profile json.RawMessage) error {
	s.mu.Lock()
	err := s.writeAll(ctx, creds, profile)
	if err != nil {
		_ = s.store.Clear(ctx)
		s.creds = Credentials{}
		s.profile = nil
	} else {
		s.creds = creds
		s.profile = append(json.RawMessage(nil), profile...)
	}
	ev := Event{Type: EventSignedIn, State: s.stateLocked(), Profile: s.profile}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	s.publish(ev)
	return nil
}

func (s *Session) writeAll(ctx context.Context, creds Credentials, profile json.RawMessage) error {
	if err := s.store.Set(ctx, KeyAccessToken, creds.AccessToken); err != nil {
		return err
	}
	if err := s.store.Set(ctx, KeyRefreshToken, creds.RefreshToken); err != nil {
		return err
	}
	if len(profile) == 0 {
		return s.store.Remove(ctx, KeyProfile)
	}
	return s.store.Set(ctx, KeyProfile, string(profile))
}

// SetAccessToken 以 refresh 取得的新 access token 取代舊值，refresh token 不變。
// refreshToken 是換發時使用的 refresh token；若期間 session 已登出、失效或重新登入，
// 回傳 ErrSessionChanged 且不寫入。
func (s *Session) SetAccessToken(ctx context.Context, refreshToken, token string) error {
	s.mu.Lock()
	if refreshToken == "" || s.creds.RefreshToken != refreshToken {
		s.mu.Unlock()
		return ErrSessionChanged
	}
	if err := s.store.Set(ctx, KeyAccessToken, token); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save access token: %w", err)
	}
	s.creds.AccessToken = token
	ev := Event{Type: EventTokenRefreshed, State: s.stateLocked()}
	s.mu.Unlock()

	s.publish(ev)
	return nil
}

// SetProfile 更新快取的使用者資料（例如修改個人資料後）。
func (s *Session) SetProfile(ctx context.Context, profile json.RawMessage) error {
	s.mu.Lock()
	if err := s.store.Set(ctx, KeyProfile, string(profile)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save profile: %w", err)
	}
	s.profile = append(json.RawMessage(nil), profile...)
	ev := Event{Type: EventProfileUpdated, State: s.stateLocked(), Profile: s.profile}
	s.mu.Unlock()

	s.publish(ev)
	return nil
}

// SignOut 在登出成功後清除所有憑證。
func (s *Session) SignOut(ctx context.Context) error {
	return s.purge(ctx, EventSignedOut)
}

// Invalidate 在憑證無法再使用時清除 session。
// 只有原本為登入狀態時才會發出 EventInvalidated，重複呼叫不會重複通知。
func (s *Session) Invalidate(ctx context.Context) error {
	return s.purge(ctx, EventInvalidated)
}

func (s *Session) purge(ctx context.Context, typ EventType) error {
	s.mu.Lock()
	had := !s.creds.Empty() || s.profile != nil
	err := s.store.Clear(ctx)
	s.creds = Credentials{}
	s.profile = nil
	s.mu.Unlock()

	if err != nil {
		log.Printf("[Session] clear storage failed: %v", err)
		err = fmt.Errorf("clear storage: %w", err)
	}
	if had || typ == EventSignedOut {
		s.publish(Event{Type: typ, State: StateAnonymous})
	}
	return err
}

// Subscribe 註冊事件回呼，回傳取消訂閱函式。回呼在鎖外同步執行。
func (s *Session) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
