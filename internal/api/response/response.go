package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope around every JSON body the API returns.
type Response struct {
	Success bool `json:"success"`
	Code    int  `json:"code"`
	Extras  any  `json:"extras"`
}

func NewResponse(success bool, code int, extras any) Response {
	return Response{
		Success: success,
		Code:    code,
		Extras:  extras,
	}
}

// SuccessResponse writes extras with status 200.
func SuccessResponse(c *gin.Context, extras any) {
	JSON(c, http.StatusOK, extras)
}

// CreatedResponse writes extras with status 201.
func CreatedResponse(c *gin.Context, extras any) {
	JSON(c, http.StatusCreated, extras)
}

// JSON writes a successful envelope with the given status.
func JSON(c *gin.Context, code int, extras any) {
	c.JSON(code, NewResponse(true, code, extras))
}

// ErrorResponse writes a failed envelope carrying message.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(
		code,
		NewResponse(
			false,
			code,
			map[string]any{
				"message": message,
			},
		))
}
