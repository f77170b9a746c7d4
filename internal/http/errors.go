package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"social-network-api/internal/repository"
	"social-network-api/internal/service"
)

const (
	msgForbidden = "You do not have permission to perform this action."
	msgNotFound  = "Not found."
)

var registerNamesOnce sync.Once

// registerJSONFieldNames makes validator report fields by their JSON name.
func registerJSONFieldNames() {
	registerNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// writeError maps service and repository errors to status codes. Anything
// unrecognised is logged and reported as a bare 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, validationResponse(verr.Fields))
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": msgForbidden})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
	case errors.Is(err, service.ErrInvalidCredentials):
		abortUnauthorized(c, "No active account found with the given credentials")
	default:
		h.internalError(c, err)
	}
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).Error("request error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func validationResponse(fields map[string]string) gin.H {
	return gin.H{"error": "validation failed", "fields": fields}
}

// bindJSON decodes and validates the body, answering 400 itself on failure.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		c.JSON(http.StatusBadRequest, validationResponse(fields))
	case errors.As(err, &typeErr) && typeErr.Field != "":
		c.JSON(http.StatusBadRequest, validationResponse(map[string]string{
			typeErr.Field: fmt.Sprintf("Expected a value of type %s.", typeErr.Type),
		}))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
	}
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "gte", "min":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	default:
		return "Invalid value."
	}
}

// pathID parses an id path parameter. Ids that cannot name a row answer 404
// the same way a missing row does.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return 0, false
	}
	return id, true
}
