package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-network-api/internal/auth"
	"social-network-api/internal/repository"
)

type createUserRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Password string `json:"password" binding:"required"`
	Age      *int   `json:"age" binding:"omitempty,gte=0"`
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}

	age := 0
	if req.Age != nil {
		age = *req.Age
	}
	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, age)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) obtainToken(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	pair, err := h.tokens.IssuePair(user.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, pairToResponse(pair))
}

// refreshToken trades a refresh token for a new access token. The user must
// still exist.
func (h *Handler) refreshToken(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	claims, err := h.tokens.Parse(req.Refresh, auth.RefreshToken)
	if err != nil {
		abortUnauthorized(c, "Token is invalid or expired")
		return
	}
	if _, err := h.users.GetByID(c.Request.Context(), claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			abortUnauthorized(c, "Token is invalid or expired")
			return
		}
		h.internalError(c, err)
		return
	}

	access, err := h.tokens.IssueAccess(claims.UserID)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, AccessTokenResponse{Access: access})
}
