package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ats-platform/ats-backend/internal/models"
	"github.com/ats-platform/ats-backend/internal/security"
	"github.com/ats-platform/ats-backend/internal/services"
	"github.com/ats-platform/ats-backend/internal/utils"
)

type APIError struct {
	Code    utils.Code        `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
			Fields:  ae.Fields,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func requireUserID(c *gin.Context) (int64, bool) {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(int64); ok && id != 0 {
			return id, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return 0, false
}

// currentUser resolves the authenticated user record for operations
// that need a full actor, not just an id.
func currentUser(c *gin.Context, auth services.AuthService) (*models.User, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return nil, false
	}
	u, err := auth.Me(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return u, true
}

func claimsFrom(c *gin.Context) *security.Claims {
	if v, ok := c.Get("claims"); ok {
		if claims, ok := v.(*security.Claims); ok {
			return claims
		}
	}
	return nil
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, "Params", "invalid id", err))
		return 0, false
	}
	return id, true
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type pageParams struct {
	Page   int
	Size   int
	Offset int
}

func parsePageParams(c *gin.Context) pageParams {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.Query("page_size"))
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return pageParams{Page: page, Size: size, Offset: (page - 1) * size}
}

// PaginatedResponse is the list envelope: count plus absolute links to
// the neighboring pages, or null at either end.
type PaginatedResponse struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

func paginated(c *gin.Context, p pageParams, count int64, results any) PaginatedResponse {
	resp := PaginatedResponse{Count: count, Results: results}
	if int64(p.Offset+p.Size) < count {
		resp.Next = pageURL(c, p.Page+1)
	}
	if p.Page > 1 {
		resp.Previous = pageURL(c, p.Page-1)
	}
	return resp
}

func pageURL(c *gin.Context, page int) *string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	s := scheme + "://" + c.Request.Host + u.String()
	return &s
}
