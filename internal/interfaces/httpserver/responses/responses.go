package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"connectify-server/internal/utils/platformerrors"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code      string         `json:"code,omitempty"` // UUID from PlatformError
	Error     string         `json:"error"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// HandleError maps a domain error onto an HTTP response. Platform errors
// carry their own status; anything else is a 500 with a generic body.
func HandleError(reqCtx *gin.Context, err error, message string) {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		statusCode := platformerrors.ErrorTypeToHTTPStatus(platformErr.GetErrorType())
		body := ErrorResponse{
			Code:      platformErr.GetUUID(),
			Error:     platformErr.Message,
			RequestID: platformErr.GetRequestID(),
		}
		if len(platformErr.Context) > 0 {
			body.Details = platformErr.Context
		}
		reqCtx.AbortWithStatusJSON(statusCode, body)
		return
	}

	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: message})
}

// HandleNewError creates a typed error at the route layer and replies with
// it.
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message, uuid string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, errorType, message, nil, uuid)
	HandleError(reqCtx, err, message)
}
