package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lingua-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError classifies err and writes the matching envelope. Internal error
// details stay in the logs.
func RespondAPIError(c *gin.Context, err error) {
	e := apierr.From(err)
	if e == nil {
		e = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	_ = c.Error(err)
	if e.Status >= http.StatusInternalServerError && e.Status != http.StatusServiceUnavailable &&
		e.Status != http.StatusBadGateway && e.Status != http.StatusGatewayTimeout {
		c.JSON(e.Status, ErrorEnvelope{Error: APIError{Message: "internal error", Code: e.Code}})
		return
	}
	RespondError(c, e.Status, e.Code, e)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}
