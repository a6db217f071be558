// Package http holds the pieces shared by the API router and the modules it
// mounts.
package http

import "github.com/gin-gonic/gin"

// Module is a feature area that owns a set of API routes, such as sales
// invoicing.
type Module interface {
	Name() string
	RegisterRoutes(routes *Routes)
}

// Routes are the groups a module can mount on.
type Routes struct {
	// Public is /api/v1, rate limited but without auth.
	Public *gin.RouterGroup
	// Protected is /api/v1 behind the bearer token check.
	Protected *gin.RouterGroup
}
