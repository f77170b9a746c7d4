package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-network-api/internal/service"
)

type postRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description" binding:"required"`
	Tags        []string `json:"tags" binding:"omitempty,dive,max=50"`
	ImageURL    *string  `json:"imageUrl" binding:"omitempty,max=255"`
}

func (r postRequest) toInput() service.PostInput {
	return service.PostInput{
		Title:       r.Title,
		Description: r.Description,
		Tags:        r.Tags,
		ImageURL:    r.ImageURL,
	}
}

func (h *Handler) listPosts(c *gin.Context) {
	posts, err := h.posts.ListPosts(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = h.postToResponse(c.Request.Context(), posts[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getPost(c *gin.Context) {
	id, ok := pathID(c, "post_id")
	if !ok {
		return
	}

	post, err := h.posts.GetPost(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.postToResponse(c.Request.Context(), *post))
}

func (h *Handler) createPost(c *gin.Context) {
	caller, _ := callerFrom(c)

	var req postRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), caller.ID, req.toInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.postToResponse(c.Request.Context(), *post))
}

func (h *Handler) updatePost(c *gin.Context) {
	caller, _ := callerFrom(c)
	id, ok := pathID(c, "post_id")
	if !ok {
		return
	}
	if _, err := h.posts.OwnedPost(c.Request.Context(), caller.ID, id); err != nil {
		h.writeError(c, err)
		return
	}

	var req postRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := h.posts.UpdatePost(c.Request.Context(), caller.ID, id, req.toInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.postToResponse(c.Request.Context(), *post))
}

func (h *Handler) deletePost(c *gin.Context) {
	caller, _ := callerFrom(c)
	id, ok := pathID(c, "post_id")
	if !ok {
		return
	}

	post, err := h.posts.DeletePost(c.Request.Context(), caller.ID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if post.ImageURL != nil {
		if err := h.images.Remove(c.Request.Context(), *post.ImageURL); err != nil {
			h.logger.WithError(err).WithField("post_id", post.ID).Warn("delete post image")
		}
	}
	c.Status(http.StatusNoContent)
}
