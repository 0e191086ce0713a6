package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/api"
	"github.com/itchan-dev/modpolicy/shared/domain"
	internal_errors "github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockPostsService struct {
	MockCreatePost    func(actor domain.Actor, title, body string) (domain.Post, error)
	MockCreateComment func(actor domain.Actor, postId domain.PostId, parentId *domain.CommentId, body string) (domain.Comment, error)
	MockDeletePost    func(actor domain.Actor, id domain.PostId) error
	MockDeleteComment func(actor domain.Actor, id domain.CommentId) error
	MockGetPost       func(actor domain.Actor, id domain.PostId, withDeleted bool) (domain.Post, error)
	MockListComments  func(actor domain.Actor, postId domain.PostId, filter domain.ListFilter) ([]domain.Comment, error)
}

func (m *MockPostsService) CreatePost(ctx context.Context, actor domain.Actor, title, body string) (domain.Post, error) {
	if m.MockCreatePost != nil {
		return m.MockCreatePost(actor, title, body)
	}
	return domain.Post{}, nil
}

func (m *MockPostsService) CreateComment(ctx context.Context, actor domain.Actor, postId domain.PostId, parentId *domain.CommentId, body string) (domain.Comment, error) {
	if m.MockCreateComment != nil {
		return m.MockCreateComment(actor, postId, parentId, body)
	}
	return domain.Comment{}, nil
}

func (m *MockPostsService) DeletePost(ctx context.Context, actor domain.Actor, id domain.PostId) error {
	if m.MockDeletePost != nil {
		return m.MockDeletePost(actor, id)
	}
	return nil
}

func (m *MockPostsService) DeleteComment(ctx context.Context, actor domain.Actor, id domain.CommentId) error {
	if m.MockDeleteComment != nil {
		return m.MockDeleteComment(actor, id)
	}
	return nil
}

func (m *MockPostsService) GetPost(ctx context.Context, actor domain.Actor, id domain.PostId, withDeleted bool) (domain.Post, error) {
	if m.MockGetPost != nil {
		return m.MockGetPost(actor, id, withDeleted)
	}
	return domain.Post{}, nil
}

func (m *MockPostsService) ListComments(ctx context.Context, actor domain.Actor, postId domain.PostId, filter domain.ListFilter) ([]domain.Comment, error) {
	if m.MockListComments != nil {
		return m.MockListComments(actor, postId, filter)
	}
	return nil, nil
}

func setupPostsRouter(actor domain.Actor, posts *MockPostsService) *chi.Mux {
	h := &Handler{posts: posts, cfg: testConfig()}
	return withActor(actor, func(r chi.Router) {
		r.Post("/v1/posts", h.CreatePost)
		r.Get("/v1/posts/{postId}", h.GetPost)
		r.Delete("/v1/posts/{postId}", h.DeletePost)
		r.Post("/v1/posts/{postId}/comments", h.CreateComment)
		r.Get("/v1/posts/{postId}/comments", h.ListComments)
		r.Delete("/v1/comments/{commentId}", h.DeleteComment)
	})
}

func TestCreatePostHandler(t *testing.T) {
	router := setupPostsRouter(memberActor(), &MockPostsService{
		MockCreatePost: func(actor domain.Actor, title, body string) (domain.Post, error) {
			return domain.Post{Id: uuid.New(), AuthorId: actor.MemberId(), Title: title, Body: body}, nil
		},
	})

	rr := serve(router, createRequest(t, http.MethodPost, "/v1/posts", []byte(`{"title":"hello","body":"world"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	var post api.Post
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&post))
	assert.Equal(t, "hello", post.Title)

	rr = serve(router, createRequest(t, http.MethodPost, "/v1/posts", []byte(`{"title":"hello"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeletePostHandler(t *testing.T) {
	id := uuid.New()

	t.Run("window expired", func(t *testing.T) {
		router := setupPostsRouter(memberActor(), &MockPostsService{
			MockDeletePost: func(domain.Actor, domain.PostId) error {
				return internal_errors.New(internal_errors.KindWindowExpired, "the deletion window has passed")
			},
		})
		rr := serve(router, createRequest(t, http.MethodDelete, "/v1/posts/"+id.String(), nil))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("deleted", func(t *testing.T) {
		router := setupPostsRouter(moderatorActor(), &MockPostsService{})
		rr := serve(router, createRequest(t, http.MethodDelete, "/v1/posts/"+id.String(), nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestCommentHandlers(t *testing.T) {
	postId := uuid.New()
	parentId := uuid.New()

	router := setupPostsRouter(memberActor(), &MockPostsService{
		MockCreateComment: func(actor domain.Actor, post domain.PostId, parent *domain.CommentId, body string) (domain.Comment, error) {
			assert.Equal(t, postId, post)
			require.NotNil(t, parent)
			assert.Equal(t, parentId, *parent)
			return domain.Comment{}, internal_errors.New(internal_errors.KindValidation, "comments nest at most 3 levels deep")
		},
		MockListComments: func(actor domain.Actor, post domain.PostId, filter domain.ListFilter) ([]domain.Comment, error) {
			return []domain.Comment{{Id: uuid.New(), PostId: post, Depth: 1}, {Id: uuid.New(), PostId: post, ParentId: &parentId, Depth: 2}}, nil
		},
		MockDeleteComment: func(actor domain.Actor, id domain.CommentId) error {
			return internal_errors.Forbidden("only the author or a moderator may delete a comment")
		},
	})

	rr := serve(router, createRequest(t, http.MethodPost, "/v1/posts/"+postId.String()+"/comments", []byte(`{"parent_id":"`+parentId.String()+`","body":"deep"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(router, createRequest(t, http.MethodGet, "/v1/posts/"+postId.String()+"/comments", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var comments []api.Comment
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&comments))
	require.Len(t, comments, 2)
	assert.Equal(t, 2, comments[1].Depth)

	rr = serve(router, createRequest(t, http.MethodDelete, "/v1/comments/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
