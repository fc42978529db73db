package handlers

import "github.com/gin-gonic/gin"

// NewRouter wires the pages API and, when auth is non-nil, the admin routes.
func NewRouter(api *API, auth *Auth) *gin.Engine {
	r := gin.Default()

	if auth != nil {
		r.Use(auth.Sessions())
	}

	// --- Pages API ---
	v2 := r.Group("/api/v2")
	{
		v2.GET("/pages/", api.ListPages)
		v2.GET("/pages/:id/", api.GetPage)
	}

	if auth == nil {
		return r
	}

	// --- Auth Routes ---
	r.GET("/login/github", auth.GithubLogin)
	r.GET("/auth/callback", auth.AuthCallback)
	r.GET("/logout", auth.Logout)

	// --- Admin (Authorized) ---
	admin := r.Group("/api")
	admin.Use(auth.AuthRequired)
	{
		admin.POST("/import", api.HandleImport)
	}

	return r
}
