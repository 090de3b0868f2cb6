package app

import "github.com/gin-gonic/gin"

// Module is a self-registering business module. Each module mounts its JSON
// routes on the authenticated API group.
type Module interface {
	RegisterRoutes(api *gin.RouterGroup)
}

// ModelOwner is implemented by modules that own database tables. Models are
// returned in creation order.
type ModelOwner interface {
	Models() []any
}

// collectModels gathers the tables of every module, in module order, so a
// module's tables are created after those of the modules listed before it.
func collectModels(modules []Module) []any {
	var out []any
	for _, m := range modules {
		if owner, ok := m.(ModelOwner); ok {
			out = append(out, owner.Models()...)
		}
	}
	return out
}
