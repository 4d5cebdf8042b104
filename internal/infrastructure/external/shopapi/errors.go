package shopapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
)

// ExpiredTokenName 為後端回報 access token 過期時 data.name 的值。
const ExpiredTokenName = "EXPIRED_TOKEN"

// ErrNoRefreshToken 表示 session 沒有 refresh token，無法續期。
var ErrNoRefreshToken = errors.New("no refresh token held")

// Kind 依 HTTP 狀態與回應內容分類錯誤。
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthorizedExpired
	KindUnauthorizedOther
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorizedExpired:
		return "unauthorized_expired"
	case KindUnauthorizedOther:
		return "unauthorized"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error 是 client 對呼叫端回報的失敗。
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int
	// Message 為後端回應的 message 欄位。
	Message string
	// Name 為 401 回應中 data.name 的值。
	Name string
	// Fields 為 422 回應中的欄位錯誤。
	Fields map[string]string
	Body   []byte
	Err    error

	notified atomic.Bool
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// markNotified 回傳 true 表示這是第一次通知。
func (e *Error) markNotified() bool {
	return e.notified.CompareAndSwap(false, true)
}

// errorBody 對應後端 {message, data} 錯誤格式。
type errorBody struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// newStatusError 由非 2xx 回應建立 Error。
func newStatusError(req *Request, status int, body []byte) *Error {
	e := &Error{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: status,
		Body:       body,
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		e.Message = eb.Message
	}

	switch status {
	case http.StatusUnprocessableEntity:
		e.Kind = KindValidation
		fields := map[string]string{}
		if len(eb.Data) > 0 && json.Unmarshal(eb.Data, &fields) == nil {
			e.Fields = fields
		}
	case http.StatusUnauthorized:
		var data struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		if len(eb.Data) > 0 {
			_ = json.Unmarshal(eb.Data, &data)
		}
		e.Name = data.Name
		if e.Message == "" {
			e.Message = data.Message
		}
		if data.Name == ExpiredTokenName {
			e.Kind = KindUnauthorizedExpired
		} else {
			e.Kind = KindUnauthorizedOther
		}
	default:
		e.Kind = KindServer
	}
	return e
}

func newNetworkError(req *Request, err error) *Error {
	return &Error{
		Kind:   KindNetwork,
		Method: req.Method,
		Path:   req.Path,
		Err:    err,
	}
}

// AsError 取出錯誤鏈中的 *Error。
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 回傳錯誤分類，非 client 錯誤回傳 KindUnknown。
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }

func IsUnauthorized(err error) bool {
	k := KindOf(err)
	return k == KindUnauthorizedExpired || k == KindUnauthorizedOther
}

func IsExpiredToken(err error) bool { return KindOf(err) == KindUnauthorizedExpired }

// FieldErrors 回傳 422 的欄位錯誤，其他錯誤回傳 nil。
func FieldErrors(err error) map[string]string {
	if e, ok := AsError(err); ok && e.Kind == KindValidation {
		return e.Fields
	}
	return nil
}
