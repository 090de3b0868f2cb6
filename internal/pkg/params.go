package pkg

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// ParseID extracts and validates the "id" URL parameter. On failure it sends
// a 400 response and returns false.
func ParseID(c *gin.Context) (uint, bool) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		Error(c, domain.NewAppError(domain.CodeValidation, err.Error(), nil))
		return 0, false
	}
	return id, true
}

func parseUintParam(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id: %s", raw)
	}
	if id > uint64(^uint(0)) {
		return 0, fmt.Errorf("invalid id: %s", raw)
	}
	return uint(id), nil
}
