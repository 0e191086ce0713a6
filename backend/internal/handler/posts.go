package handler

import (
	"net/http"

	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/utils"
)

// CreatePost handles POST /v1/posts
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body api.CreatePostRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	post, err := h.posts.CreatePost(r.Context(), actor, body.Title, body.Body)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, api.NewPost(post))
}

// GetPost handles GET /v1/posts/{postId}
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "postId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	post, err := h.posts.GetPost(r.Context(), actor, id, includeDeleted(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.NewPost(post))
}

// DeletePost handles DELETE /v1/posts/{postId}. Comments go with the post.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "postId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.posts.DeletePost(r.Context(), actor, id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateComment handles POST /v1/posts/{postId}/comments
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	postId, err := uuidParam(r, "postId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	var body api.CreateCommentRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	comment, err := h.posts.CreateComment(r.Context(), actor, postId, body.ParentId, body.Body)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeCreated(w, api.NewComment(comment))
}

// ListComments handles GET /v1/posts/{postId}/comments
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	postId, err := uuidParam(r, "postId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	filter, err := listFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	comments, err := h.posts.ListComments(r.Context(), actor, postId, filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.Map(comments, api.NewComment))
}

// DeleteComment handles DELETE /v1/comments/{commentId}
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := uuidParam(r, "commentId")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.posts.DeleteComment(r.Context(), actor, id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
