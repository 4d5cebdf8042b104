package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	cats, err := s.store.Categories(c.Request.Context())
	if err != nil {
		writeUseCaseError(c, err)
		return
	}
	writeSuccess(c, "ok", gin.H{
		"store":      "memory",
		"categories": len(cats),
		"time":       s.now().UTC().Format(time.RFC3339),
	})
}
