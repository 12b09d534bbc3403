package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/commissionedge/crm_backend/config"
	"github.com/commissionedge/crm_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// respondError maps domain errors onto HTTP statuses: not-found to 404,
// conflicts to 409, precondition violations to 400 with their message
// intact, and fatal errors to a generic 500 that does not leak internals.
func respondError(c *gin.Context, module string, funcName string, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "issues": utils.ProcessValidationErrors(err)})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case utils.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case isFatal(err):
		logger := config.GetLogger()
		config.LogError(logger, module, funcName, "unhandled error", c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		// Domain-rule violations are plain errors with descriptive messages.
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// isFatal reports infrastructure failures that must not surface verbatim.
func isFatal(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return true
	}
	return errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, context.DeadlineExceeded)
}
