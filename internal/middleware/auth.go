package middleware

import (
	"net/http"

	"github.com/Avamagic/mgserver-web-api/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	SessionUserID = "user_id"
)

// RequireSession requires a session-authenticated principal. The interactive
// login surface in front of this core is what writes the session cookie;
// here we only read the signed user id back out and resolve the user.
func RequireSession(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(SessionUserID)
		if userID == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"flag": "fail",
				"msg":  "login required",
			})
			return
		}

		id, ok := userID.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"flag": "fail",
				"msg":  "login required",
			})
			return
		}

		user, err := users.GetUserByID(id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"flag": "fail",
				"msg":  "login required",
			})
			return
		}

		c.Set(ContextUser, user)
		c.Next()
	}
}
