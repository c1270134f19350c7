package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"uniconnect.app/campus/internal/entity"
	"uniconnect.app/campus/pkg/apperror"
)

const ViewerKey = "viewer"

// GetViewer retrieves the authenticated viewer profile from the context
func GetViewer(c *gin.Context) (entity.Viewer, error) {
	value, exists := c.Get(ViewerKey)
	if !exists {
		return entity.Viewer{}, apperror.ErrUnauthorized
	}

	viewer, ok := value.(entity.Viewer)
	if !ok || viewer.ID == "" {
		return entity.Viewer{}, apperror.ErrUnauthorized
	}

	return viewer, nil
}

// Success writes the success envelope with an optional payload.
func Success(c *gin.Context, code int, data any) {
	body := gin.H{"success": true}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, log *zap.Logger, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(code, gin.H{
		"success": false,
		"error":   err.Error(),
		"kind":    apperror.Kind(err),
	})
}
