package httpapi

import (
	"github.com/gin-gonic/gin"

	"studysync/internal/apierr"
)

type ErrorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondError writes msg with the status and code derived from err.
// The message is what the client sees; err is only logged.
func RespondError(c *gin.Context, msg string, err error) {
	ae := apierr.FromError(err)
	if ae == nil {
		ae = apierr.New(500, "internal", nil)
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(ae.Status, ErrorEnvelope{Error: msg, Code: ae.Code})
}
