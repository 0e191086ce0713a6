package pg

import (
	"fmt"
	"time"

	"github.com/itchan-dev/modpolicy/shared/domain"
)

// =========================================================================
// Posts
// =========================================================================

const postColumns = `id, author_id, title, body, created_at, updated_at, deleted_at`

func scanPost(row scanner) (domain.Post, error) {
	var p domain.Post
	err := row.Scan(&p.Id, &p.AuthorId, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	p.CreatedAt, p.UpdatedAt, p.DeletedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC(), utc(p.DeletedAt)
	return p, err
}

func (t *txStore) CreatePost(p domain.Post) error {
	_, err := t.q.Exec(`
		INSERT INTO posts (`+postColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.Id, p.AuthorId, p.Title, p.Body, p.CreatedAt, p.UpdatedAt, p.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (t *txStore) GetPost(id domain.PostId, includeDeleted bool) (domain.Post, error) {
	p, err := scanPost(t.q.QueryRow(`
		SELECT `+postColumns+` FROM posts WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.Post{}, notFound(err, "post")
	}
	return p, nil
}

func (t *txStore) UpdatePost(p domain.Post) error {
	result, err := t.q.Exec(`
		UPDATE posts SET title = $2, body = $3, updated_at = $4, deleted_at = $5 WHERE id = $1`,
		p.Id, p.Title, p.Body, p.UpdatedAt, p.DeletedAt,
	)
	return affected(result, err, "post")
}

// =========================================================================
// Comments
// =========================================================================

const commentColumns = `id, post_id, author_id, parent_id, depth, body, created_at, updated_at, deleted_at`

func scanComment(row scanner) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.Id, &c.PostId, &c.AuthorId, &c.ParentId, &c.Depth, &c.Body, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	c.CreatedAt, c.UpdatedAt, c.DeletedAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC(), utc(c.DeletedAt)
	return c, err
}

func (t *txStore) CreateComment(c domain.Comment) error {
	_, err := t.q.Exec(`
		INSERT INTO comments (`+commentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.Id, c.PostId, c.AuthorId, c.ParentId, c.Depth, c.Body, c.CreatedAt, c.UpdatedAt, c.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (t *txStore) GetComment(id domain.CommentId, includeDeleted bool) (domain.Comment, error) {
	c, err := scanComment(t.q.QueryRow(`
		SELECT `+commentColumns+` FROM comments WHERE id = $1 AND ($2 OR deleted_at IS NULL)`, id, includeDeleted))
	if err != nil {
		return domain.Comment{}, notFound(err, "comment")
	}
	return c, nil
}

func (t *txStore) UpdateComment(c domain.Comment) error {
	result, err := t.q.Exec(`
		UPDATE comments SET body = $2, updated_at = $3, deleted_at = $4 WHERE id = $1`,
		c.Id, c.Body, c.UpdatedAt, c.DeletedAt,
	)
	return affected(result, err, "comment")
}

func (t *txStore) SoftDeleteComments(postId domain.PostId, now time.Time) (int64, error) {
	result, err := t.q.Exec(`
		UPDATE comments SET deleted_at = $2, updated_at = $2
		WHERE post_id = $1 AND deleted_at IS NULL`, postId, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments of post %s: %w", postId, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

func (t *txStore) ListComments(postId domain.PostId, filter domain.ListFilter) ([]domain.Comment, error) {
	args := []any{postId, filter.IncludeDeleted}
	page, args := pageClause(filter, 3, args)
	rows, err := t.q.Query(`
		SELECT `+commentColumns+`
		FROM comments
		WHERE post_id = $1 AND ($2 OR deleted_at IS NULL)
		ORDER BY created_at, id`+page, args...)
	return collect(rows, err, "comments", scanComment)
}
