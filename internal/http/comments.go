package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-network-api/internal/service"
)

type commentRequest struct {
	Content string `json:"content" binding:"required"`
	Likes   *int   `json:"likes" binding:"omitempty,gte=0"`
}

func (r commentRequest) toInput() service.CommentInput {
	return service.CommentInput{
		Content: r.Content,
		Likes:   r.Likes,
	}
}

func (h *Handler) listComments(c *gin.Context) {
	postID, ok := pathID(c, "post_id")
	if !ok {
		return
	}

	comments, err := h.comments.ListComments(c.Request.Context(), postID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]CommentResponse, len(comments))
	for i := range comments {
		resp[i] = commentToResponse(comments[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getComment(c *gin.Context) {
	postID, commentID, ok := commentPath(c)
	if !ok {
		return
	}

	comment, err := h.comments.GetComment(c.Request.Context(), postID, commentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commentToResponse(*comment))
}

func (h *Handler) createComment(c *gin.Context) {
	caller, _ := callerFrom(c)
	postID, ok := pathID(c, "post_id")
	if !ok {
		return
	}

	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.comments.CreateComment(c.Request.Context(), caller.ID, postID, req.toInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentToResponse(*comment))
}

func (h *Handler) updateComment(c *gin.Context) {
	caller, _ := callerFrom(c)
	postID, commentID, ok := commentPath(c)
	if !ok {
		return
	}
	if _, err := h.comments.OwnedComment(c.Request.Context(), caller.ID, postID, commentID); err != nil {
		h.writeError(c, err)
		return
	}

	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.comments.UpdateComment(c.Request.Context(), caller.ID, postID, commentID, req.toInput())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commentToResponse(*comment))
}

func (h *Handler) deleteComment(c *gin.Context) {
	caller, _ := callerFrom(c)
	postID, commentID, ok := commentPath(c)
	if !ok {
		return
	}

	if err := h.comments.DeleteComment(c.Request.Context(), caller.ID, postID, commentID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func commentPath(c *gin.Context) (postID, commentID int64, ok bool) {
	if postID, ok = pathID(c, "post_id"); !ok {
		return 0, 0, false
	}
	if commentID, ok = pathID(c, "comment_id"); !ok {
		return 0, 0, false
	}
	return postID, commentID, true
}
