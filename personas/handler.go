package personas

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Module struct {
	registry *Registry
}

// RegisterRoutes mounts the persona catalog endpoint under /personas.
func RegisterRoutes(router *gin.Engine) (*Module, error) {
	module := &Module{registry: NewRegistry()}

	router.GET("/personas", module.handleList)

	return module, nil
}

// Registry exposes the persona table to other modules.
func (m *Module) Registry() *Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Module) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":  DefaultKey,
		"personas": m.registry.All(),
	})
}
