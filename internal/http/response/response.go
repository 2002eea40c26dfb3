package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shipdash-backend/internal/pkg/apierr"
)

type ErrorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func RespondError(c *gin.Context, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	env := ErrorEnvelope{Error: msg}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		env.Code = ae.Code
	}
	c.JSON(status, env)
}

// RespondFailure maps err to its apierr status, falling back to 500.
func RespondFailure(c *gin.Context, err error) {
	status := apierr.StatusOf(err, http.StatusInternalServerError)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondError(c, status, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
