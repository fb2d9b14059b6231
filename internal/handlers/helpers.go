package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"intihelp/internal/authz"
	"intihelp/internal/logging"
	"intihelp/internal/middleware"
	"intihelp/internal/models"
	"intihelp/internal/pricing"
	"intihelp/internal/repositories"
	"intihelp/internal/services"
	"intihelp/internal/storage"
)

// session returns the caller's session or aborts with 401.
func session(c *gin.Context) (authz.Session, bool) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return authz.Session{}, false
	}
	return sess, true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, tag string, err error) {
	logging.Warn(tag+"[bind][err]", "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// bindErr marks a request decoding failure as invalid input.
func bindErr(err error) error {
	return fmt.Errorf("%w: %v", services.ErrInvalidInput, err)
}

// statusFor maps a domain error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrTransitionForbidden):
		return http.StatusForbidden

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, repositories.ErrTokenInvalid):
		return http.StatusUnauthorized

	case errors.Is(err, services.ErrIllegalTransition),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrPaymentNotAllowed),
		errors.Is(err, repositories.ErrStaleStatus),
		errors.Is(err, repositories.ErrDuplicate),
		errors.Is(err, repositories.ErrPaymentExists),
		errors.Is(err, repositories.ErrMemberNotPayable),
		errors.Is(err, repositories.ErrPaymentNotPending):
		return http.StatusConflict

	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrAssistantNoPrice),
		errors.Is(err, pricing.ErrInvalidBand),
		errors.Is(err, pricing.ErrOverlappingBands),
		errors.Is(err, pricing.ErrNoMembers),
		errors.Is(err, pricing.ErrCouponInactive),
		errors.Is(err, pricing.ErrCouponExpired),
		errors.Is(err, pricing.ErrCouponInvalid),
		errors.Is(err, storage.ErrEmpty),
		errors.Is(err, storage.ErrUnsupportedType),
		errors.Is(err, storage.ErrInvalidPath):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Internal errors are logged and hidden.
func respondError(c *gin.Context, tag string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error(tag+"[err]", "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	logging.Debug(tag+"[fail]", "status", status, "error", err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// uploadAll stores every file sent under field and returns the new ids. If
// one upload fails the ones already stored are discarded.
func uploadAll(c *gin.Context, files services.FileService, sess authz.Session, uc models.UploadContext, headers []*multipart.FileHeader) ([]int64, error) {
	ids := make([]int64, 0, len(headers))
	for _, fh := range headers {
		f, err := uploadOne(c, files, sess, uc, fh)
		if err != nil {
			files.Discard(c.Request.Context(), ids)
			return nil, err
		}
		ids = append(ids, f.ID)
	}
	return ids, nil
}

func uploadOne(c *gin.Context, files services.FileService, sess authz.Session, uc models.UploadContext, fh *multipart.FileHeader) (*models.File, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return files.Upload(c.Request.Context(), sess, uc, fh.Filename, src)
}

// formIDs reads repeated or comma separated integer form values.
func formIDs(c *gin.Context, key string) ([]int64, error) {
	var out []int64
	for _, raw := range c.PostFormArray(key) {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %q", key, part)
			}
			out = append(out, id)
		}
	}
	return out, nil
}
