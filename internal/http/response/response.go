package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/convoroute-backend/internal/pkg/apierr"
)

func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// Error renders an error in the envelope the gateway expects. apierr.Error
// carries its own status and code; anything else is a 500.
func Error(c *gin.Context, err error) {
	ae := apierr.From(err)
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    ae.Code,
			"message": ae.Error(),
		},
	})
}
