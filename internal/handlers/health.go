package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/dgnotes/internal/database"
	appErrors "github.com/charlesng35/dgnotes/pkg/errors"
	"github.com/charlesng35/dgnotes/pkg/response"
)

// Health reports readiness. With a database handle it also pings the database.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := database.Ping(db); err != nil {
				response.Error(c, appErrors.ErrStorageUnavailable.WithInternal(err))
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
