package shopapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Request 描述一次可重送的 API 呼叫。Body 先序列化成 bytes，重送時可直接複製。
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	// replayed 為 refresh 後重送的請求，不會再觸發 refresh。
	replayed bool
}

// NewJSONRequest 建立 JSON body 的請求；in 為 nil 時不帶 body。
func NewJSONRequest(method, path string, in any) (*Request, error) {
	req := &Request{Method: method, Path: path, Header: http.Header{}}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		req.Body = b
	}
	return req, nil
}

func (r *Request) clone() *Request {
	out := *r
	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	if r.Query != nil {
		out.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			out.Query[k] = append([]string(nil), v...)
		}
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return &out
}

// Replayed 表示此請求是在 token 續期後重送的。
func (r *Request) Replayed() bool { return r.replayed }

// endpoint 將路徑正規化以便和設定的端點比對。
func (r *Request) endpoint() string {
	return normalizePath(r.Path)
}

func normalizePath(p string) string {
	return strings.Trim(p, "/")
}

// Response 為已讀完 body 的 HTTP 回應。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Request    *Request
}

// Decode 將 JSON body 解碼到 v。
func (r *Response) Decode(v any) error {
	if v == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.Request.Method, r.Request.Path, err)
	}
	return nil
}
