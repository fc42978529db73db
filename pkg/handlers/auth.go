package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const sessionName = "newscms"

// Auth guards the admin routes with a GitHub login kept in a cookie session.
type Auth struct {
	conf   *oauth2.Config
	secret []byte
}

// NewAuth returns nil when conf is nil, which leaves the admin routes off.
func NewAuth(conf *oauth2.Config, secret string) *Auth {
	if conf == nil {
		return nil
	}
	return &Auth{conf: conf, secret: []byte(secret)}
}

// Sessions is the session middleware every admin route depends on.
func (a *Auth) Sessions() gin.HandlerFunc {
	return sessions.Sessions(sessionName, cookie.NewStore(a.secret))
}

func (a *Auth) AuthRequired(c *gin.Context) {
	session := sessions.Default(c)
	token := session.Get("access_token")
	if token == nil {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		} else {
			c.Redirect(http.StatusFound, "/login/github")
			c.Abort()
		}
		return
	}
	c.Next()
}

func (a *Auth) GithubLogin(c *gin.Context) {
	state := uuid.NewString()

	session := sessions.Default(c)
	session.Set("oauth_state", state)
	if err := session.Save(); err != nil {
		c.String(http.StatusInternalServerError, "Failed to start login")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

func (a *Auth) AuthCallback(c *gin.Context) {
	session := sessions.Default(c)
	expected, _ := session.Get("oauth_state").(string)
	if expected == "" || c.Query("state") != expected {
		c.String(http.StatusBadRequest, "OAuth state mismatch")
		return
	}

	token, err := a.conf.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		c.String(http.StatusInternalServerError, "OAuth Exchange Failed")
		return
	}

	session.Delete("oauth_state")
	session.Set("access_token", token.AccessToken)
	if err := session.Save(); err != nil {
		c.String(http.StatusInternalServerError, "Failed to save session")
		return
	}

	c.Redirect(http.StatusFound, "/api/v2/pages/")
}

func (a *Auth) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		c.String(http.StatusInternalServerError, "Failed to save session")
		return
	}
	c.Redirect(http.StatusFound, "/api/v2/pages/")
}
