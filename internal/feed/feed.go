// Package feed computes the visible, ordered, paginated post collections
// for every view of the site and gates all mutations on caller identity.
//
// Caller identity is an explicit user id on every operation; 0 means
// anonymous. Reads are public except the personal follow feed; writes
// require identity, and editing additionally requires authorship.
package feed

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"blog/internal/models"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyText    = errors.New("text must not be empty")
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("caller is not the author")
)

const anonymous int64 = 0

type Engine struct {
	DB *sql.DB
}

func New(db *sql.DB) *Engine { return &Engine{DB: db} }

// GlobalFeed returns every post, newest first.
func (e *Engine) GlobalFeed(ctx context.Context, pageNum int) (Page, error) {
	posts, err := models.ListPosts(ctx, e.DB)
	if err != nil {
		return Page{}, err
	}
	return Paginate(posts, pageNum), nil
}

// GroupFeed returns the posts of the group with the given slug.
func (e *Engine) GroupFeed(ctx context.Context, slug string, pageNum int) (*models.Group, Page, error) {
	group, err := models.GetGroupBySlug(ctx, e.DB, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Page{}, ErrNotFound
	}
	if err != nil {
		return nil, Page{}, err
	}
	posts, err := models.ListPostsByGroup(ctx, e.DB, group.ID)
	if err != nil {
		return nil, Page{}, err
	}
	return group, Paginate(posts, pageNum), nil
}

// AuthorFeed returns the named author's posts. following is non-nil only
// for an authenticated caller: whether a follow edge caller->author exists.
func (e *Engine) AuthorFeed(ctx context.Context, callerID int64, username string, pageNum int) (*models.User, Page, *bool, error) {
	author, err := models.GetUserByUsername(ctx, e.DB, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Page{}, nil, ErrNotFound
	}
	if err != nil {
		return nil, Page{}, nil, err
	}
	posts, err := models.ListPostsByAuthor(ctx, e.DB, author.ID)
	if err != nil {
		return nil, Page{}, nil, err
	}
	var following *bool
	if callerID != anonymous {
		ok, err := models.FollowExists(ctx, e.DB, callerID, author.ID)
		if err != nil {
			return nil, Page{}, nil, err
		}
		following = &ok
	}
	return author, Paginate(posts, pageNum), following, nil
}

// FollowFeed returns posts authored by anyone the caller follows.
func (e *Engine) FollowFeed(ctx context.Context, callerID int64, pageNum int) (Page, error) {
	if callerID == anonymous {
		return Page{}, ErrUnauthorized
	}
	posts, err := models.ListPostsByFollowed(ctx, e.DB, callerID)
	if err != nil {
		return Page{}, err
	}
	return Paginate(posts, pageNum), nil
}

// PostDetail returns a post and its comments, newest comment first.
func (e *Engine) PostDetail(ctx context.Context, postID int64) (*models.Post, []models.Comment, error) {
	post, err := models.GetPost(ctx, e.DB, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	comments, err := models.ListComments(ctx, e.DB, postID)
	if err != nil {
		return nil, nil, err
	}
	return post, comments, nil
}

// CreatePost creates a post authored by the caller. The group is optional;
// its existence is enforced by the posts.group_id foreign key.
func (e *Engine) CreatePost(ctx context.Context, callerID int64, text string, groupID *int64, image string) (*models.Post, error) {
	if callerID == anonymous {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	id, err := models.CreatePost(ctx, e.DB, callerID, groupID, text, image)
	if err != nil {
		return nil, err
	}
	return models.GetPost(ctx, e.DB, id)
}

// EditPost updates a post's text and group. Only the author may edit;
// the author and creation timestamp never change. An empty image keeps
// the current attachment.
func (e *Engine) EditPost(ctx context.Context, callerID, postID int64, text string, groupID *int64, image string) (*models.Post, error) {
	post, err := models.GetPost(ctx, e.DB, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if post.UserID != callerID {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if image == "" {
		image = post.Image
	}
	if err := models.UpdatePost(ctx, e.DB, postID, text, groupID, image); err != nil {
		return nil, err
	}
	return models.GetPost(ctx, e.DB, postID)
}

// AddComment attaches a comment by the caller to the post.
func (e *Engine) AddComment(ctx context.Context, callerID, postID int64, text string) (*models.Comment, error) {
	if callerID == anonymous {
		return nil, ErrUnauthorized
	}
	if _, err := models.GetPost(ctx, e.DB, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	id, err := models.CreateComment(ctx, e.DB, postID, callerID, text)
	if err != nil {
		return nil, err
	}
	return models.GetComment(ctx, e.DB, id)
}

// Follow creates a follow edge caller->username and reports whether the
// edge exists afterwards. Policy: following yourself is silently refused,
// and following someone twice leaves a single edge.
func (e *Engine) Follow(ctx context.Context, callerID int64, username string) (bool, error) {
	if callerID == anonymous {
		return false, ErrUnauthorized
	}
	author, err := models.GetUserByUsername(ctx, e.DB, username)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if author.ID == callerID {
		return false, nil
	}
	if err := models.CreateFollow(ctx, e.DB, callerID, author.ID); err != nil {
		return false, err
	}
	return true, nil
}

// Unfollow removes the follow edge caller->username; removing an edge
// that does not exist is a no-op.
func (e *Engine) Unfollow(ctx context.Context, callerID int64, username string) (bool, error) {
	if callerID == anonymous {
		return false, ErrUnauthorized
	}
	author, err := models.GetUserByUsername(ctx, e.DB, username)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if err := models.DeleteFollow(ctx, e.DB, callerID, author.ID); err != nil {
		return false, err
	}
	return false, nil
}
