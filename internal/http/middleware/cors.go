package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/convoroute-backend/internal/pkg/envutil"
)

func CORS() gin.HandlerFunc {
	origins := strings.Split(envutil.String("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Org-Id"},
		AllowCredentials: true,
	})
}
