package handler

import (
	"encoding/json"
	"net/http"
)

type pingResponse struct {
	Message string            `json:"message"`
	Data    map[string]string `json:"data"`
}

// Ping 回傳存活檢查 handler，回應格式與其他 API 相同的 {message, data}。
func Ping(service string) http.Handler {
	body, _ := json.Marshal(pingResponse{
		Message: "pong",
		Data:    map[string]string{"service": service},
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	})
}
