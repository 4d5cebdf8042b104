package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-client/internal/application/auth"
)

// successResponse 對應前端的 {message, data}。
type successResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type errorResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type unauthorizedData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func writeSuccess(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, successResponse{Message: msg, Data: data})
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Message: msg})
}

// writeFieldErrors 回 422，data 為欄位 -> 錯誤訊息。
func writeFieldErrors(c *gin.Context, fields map[string]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{Message: "Lỗi", Data: fields})
}

func writeUnauthorized(c *gin.Context, name, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
		Message: "Lỗi",
		Data:    unauthorizedData{Name: name, Message: msg},
	})
}

// writeUseCaseError 將 use case 錯誤轉為 HTTP 回應。
func writeUseCaseError(c *gin.Context, err error) {
	var fe *auth.FieldError
	if errors.As(err, &fe) {
		writeFieldErrors(c, fe.Fields)
		return
	}
	writeError(c, http.StatusInternalServerError, err.Error())
}
