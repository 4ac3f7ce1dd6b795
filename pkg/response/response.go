package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the body of every non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
}

const internalErrorMessage = "Internal Server Error"

func Created(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorBody{Error: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// InternalError never carries detail; the cause belongs in the log.
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, internalErrorMessage)
}

// AbortInternalError is InternalError for middleware that must stop the chain.
func AbortInternalError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: internalErrorMessage})
}
