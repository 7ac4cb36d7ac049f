package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"road-quest-server/utils"
	ws "road-quest-server/websocket"
)

// RegisterNotificationRoutes adds the owner notification websocket endpoint.
// Browsers cannot set an Authorization header on websocket upgrades, so the
// token travels as a query parameter.
func RegisterNotificationRoutes(router *gin.Engine, hub *ws.Hub) {
	router.GET("/ws/notifications", func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Token required",
				"message": "Pass the access token as the token query parameter",
			})
			return
		}

		userID, err := utils.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token",
				"message": "Token is invalid or expired",
			})
			return
		}

		ws.ServeWebSocket(hub, c.Writer, c.Request, userID)
	})
}
