package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/itchan-dev/modpolicy/shared/config"
	"github.com/itchan-dev/modpolicy/shared/domain"
	"github.com/itchan-dev/modpolicy/shared/errors"
	"github.com/itchan-dev/modpolicy/shared/logger"
)

type PostsService interface {
	CreatePost(ctx context.Context, actor domain.Actor, title, body string) (domain.Post, error)
	CreateComment(ctx context.Context, actor domain.Actor, postId domain.PostId, parentId *domain.CommentId, body string) (domain.Comment, error)
	DeletePost(ctx context.Context, actor domain.Actor, id domain.PostId) error
	DeleteComment(ctx context.Context, actor domain.Actor, id domain.CommentId) error
	GetPost(ctx context.Context, actor domain.Actor, id domain.PostId, withDeleted bool) (domain.Post, error)
	ListComments(ctx context.Context, actor domain.Actor, postId domain.PostId, filter domain.ListFilter) ([]domain.Comment, error)
}

type Posts struct {
	store     Store
	sanitizer Sanitizer
	cfg       *config.Public
	now       Clock
	log       *slog.Logger
}

func NewPosts(store Store, sanitizer Sanitizer, cfg *config.Public) *Posts {
	return &Posts{store: store, sanitizer: sanitizer, cfg: cfg, now: systemClock, log: logger.Component("posts")}
}

const entityPost = "post"

func (s *Posts) CreatePost(ctx context.Context, actor domain.Actor, title, body string) (result domain.Post, err error) {
	title, body = s.sanitizer.PlainText(title), s.sanitizer.PlainText(body)
	if title == "" || body == "" {
		return result, errors.New(errors.KindValidation, "title and body are required")
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := loadActor(tx, actor); err != nil {
			return err
		}
		now := s.now()
		result = domain.Post{
			Id:        uuid.New(),
			AuthorId:  actor.MemberId(),
			Title:     title,
			Body:      body,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.CreatePost(result)
	})
	if err != nil {
		return domain.Post{}, err
	}
	return result, nil
}

// CreateComment replies to a post or to another comment on it. Replies deeper than
// the configured nesting cap are rejected.
func (s *Posts) CreateComment(ctx context.Context, actor domain.Actor, postId domain.PostId, parentId *domain.CommentId, body string) (result domain.Comment, err error) {
	defer func() { observe("posts.create_comment", err) }()

	body = s.sanitizer.PlainText(body)
	if body == "" {
		return result, errors.New(errors.KindValidation, "body is required")
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if _, err := loadActor(tx, actor); err != nil {
			return err
		}
		if _, err := tx.GetPost(postId, false); err != nil {
			return err
		}

		depth := 1
		if parentId != nil {
			parent, err := tx.GetComment(*parentId, false)
			if err != nil {
				return err
			}
			if parent.PostId != postId {
				return errors.New(errors.KindValidation, "parent comment belongs to another post")
			}
			depth = parent.Depth + 1
		}
		if depth > s.cfg.MaxCommentDepth {
			return errors.New(errors.KindInvalidTransition, "comments cannot nest deeper than %d levels", s.cfg.MaxCommentDepth)
		}

		now := s.now()
		result = domain.Comment{
			Id:        uuid.New(),
			PostId:    postId,
			AuthorId:  actor.MemberId(),
			ParentId:  parentId,
			Depth:     depth,
			Body:      body,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.CreateComment(result)
	})
	if err != nil {
		return domain.Comment{}, err
	}
	return result, nil
}

// DeletePost tombstones a post together with its comments and leaves an audit
// entry, all in one transaction. Authors may delete their own post while
// now - created_at <= the deletion window; after that only staff can.
func (s *Posts) DeletePost(ctx context.Context, actor domain.Actor, id domain.PostId) (err error) {
	defer func() { observe("posts.delete_post", err) }()

	var removed int64
	err = s.store.InTx(ctx, func(tx Tx) error {
		role, err := verifiedRole(tx, actor)
		if err != nil {
			return err
		}
		post, err := tx.GetPost(id, false)
		if err != nil {
			return err
		}

		now := s.now()
		staff := domain.Rank(role) >= domain.Rank(domain.RoleModerator)
		author := post.AuthorId == actor.MemberId()
		switch {
		case author && post.WithinWindow(now, s.cfg.PostDeletionWindow):
		case staff:
		case author:
			return errors.New(errors.KindWindowExpired, "posts can only be deleted within %s of creation", s.cfg.PostDeletionWindow)
		default:
			return errors.Forbidden("only the author or a moderator can delete a post")
		}

		if err := post.SoftDelete(now); err != nil {
			return err
		}
		post.UpdatedAt = now
		if err := tx.UpdatePost(post); err != nil {
			return err
		}
		if removed, err = tx.SoftDeleteComments(post.Id, now); err != nil {
			return err
		}
		details := fmt.Sprintf("by %s, %d comments", role, removed)
		return audit(tx, now, memberRef(actor), entityPost, post.Id, domain.AuditPostDeleted, details)
	})
	if err != nil {
		return err
	}

	s.log.Info("post deleted", "post_id", id, "comments", removed, "by", actor.MemberId())
	return nil
}

func (s *Posts) DeleteComment(ctx context.Context, actor domain.Actor, id domain.CommentId) (err error) {
	defer func() { observe("posts.delete_comment", err) }()

	return s.store.InTx(ctx, func(tx Tx) error {
		role, err := verifiedRole(tx, actor)
		if err != nil {
			return err
		}
		comment, err := tx.GetComment(id, false)
		if err != nil {
			return err
		}
		if comment.AuthorId != actor.MemberId() && domain.Rank(role) < domain.Rank(domain.RoleModerator) {
			return errors.Forbidden("only the author or a moderator can delete a comment")
		}

		now := s.now()
		if err := comment.SoftDelete(now); err != nil {
			return err
		}
		comment.UpdatedAt = now
		return tx.UpdateComment(comment)
	})
}

// GetPost works without an actor. Deleted posts need an administrator.
func (s *Posts) GetPost(ctx context.Context, actor domain.Actor, id domain.PostId, withDeleted bool) (result domain.Post, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		inc, err := includeDeleted(tx, actor, withDeleted)
		if err != nil {
			return err
		}
		result, err = tx.GetPost(id, inc)
		return err
	})
	return result, err
}

func (s *Posts) ListComments(ctx context.Context, actor domain.Actor, postId domain.PostId, filter domain.ListFilter) (result []domain.Comment, err error) {
	err = s.store.InTx(ctx, func(tx Tx) error {
		if filter.IncludeDeleted, err = includeDeleted(tx, actor, filter.IncludeDeleted); err != nil {
			return err
		}
		if _, err := tx.GetPost(postId, filter.IncludeDeleted); err != nil {
			return err
		}
		result, err = tx.ListComments(postId, page(filter, s.cfg.PageSize))
		return err
	})
	return result, err
}
