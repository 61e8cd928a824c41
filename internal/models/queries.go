package models

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

const postColumns = `p.id, p.user_id, p.group_id, p.text, p.image, p.created_at,
	u.username, COALESCE(g.slug, ''), COALESCE(g.title, '')`

const postFrom = `FROM posts p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN "groups" g ON g.id = p.group_id`

// users

func CreateUser(ctx context.Context, db *sql.DB, email, username, passwordHash string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash) VALUES (?, ?, ?)`,
		email, username, passwordHash)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "UNIQUE constraint failed: users.email") {
			return 0, ErrDuplicateEmail
		}
		if strings.Contains(msg, "UNIQUE constraint failed: users.username") {
			return 0, ErrDuplicateUsername
		}
		return 0, err
	}
	return res.LastInsertId()
}

func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*User, error) {
	return scanUser(db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE email = ?`, email))
}

func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*User, error) {
	return scanUser(db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE username = ?`, username))
}

func GetUserByID(ctx context.Context, db *sql.DB, id int64) (*User, error) {
	return scanUser(db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE id = ?`, id))
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// sessions

func CreateSession(ctx context.Context, db *sql.DB, userID int64, sessionID string, expires time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = CURRENT_TIMESTAMP WHERE user_id = ? AND revoked_at IS NULL`, userID)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`, sessionID, userID, expires)
	return err
}

func GetSession(ctx context.Context, db *sql.DB, id string) (*Session, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?`, id)
	var s Session
	var revoked sql.NullTime
	if err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &revoked); err != nil {
		return nil, err
	}
	if revoked.Valid {
		s.RevokedAt = &revoked.Time
	}
	return &s, nil
}

func RevokeSession(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

// groups

func CreateGroup(ctx context.Context, db *sql.DB, slug, title, description string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO "groups" (slug, title, description) VALUES (?, ?, ?)`, slug, title, description)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func GetGroupBySlug(ctx context.Context, db *sql.DB, slug string) (*Group, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, slug, title, description FROM "groups" WHERE slug = ?`, slug)
	var g Group
	if err := row.Scan(&g.ID, &g.Slug, &g.Title, &g.Description); err != nil {
		return nil, err
	}
	return &g, nil
}

func ListGroups(ctx context.Context, db *sql.DB) ([]Group, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, slug, title, description FROM "groups" ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var gs []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Slug, &g.Title, &g.Description); err != nil {
			return nil, err
		}
		gs = append(gs, g)
	}
	return gs, rows.Err()
}

// DeleteGroup removes the group; posts keep existing with group_id cleared
// (ON DELETE SET NULL).
func DeleteGroup(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM "groups" WHERE id = ?`, id)
	return err
}

// posts

func CreatePost(ctx context.Context, db *sql.DB, userID int64, groupID *int64, text, image string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO posts (user_id, group_id, text, image) VALUES (?, ?, ?, ?)`,
		userID, groupID, text, image)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdatePost changes text and group only; author and created_at never change.
func UpdatePost(ctx context.Context, db *sql.DB, id int64, text string, groupID *int64, image string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE posts SET text = ?, group_id = ?, image = ? WHERE id = ?`, text, groupID, image, id)
	return err
}

func GetPost(ctx context.Context, db *sql.DB, id int64) (*Post, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+postColumns+` `+postFrom+` WHERE p.id = ?`, id)
	var p Post
	var groupID sql.NullInt64
	err := row.Scan(&p.ID, &p.UserID, &groupID, &p.Text, &p.Image, &p.CreatedAt,
		&p.Author, &p.GroupSlug, &p.GroupTitle)
	if err != nil {
		return nil, err
	}
	if groupID.Valid {
		p.GroupID = &groupID.Int64
	}
	return &p, nil
}

// ListPosts returns every post, newest first. The id tiebreak keeps the
// order stable for posts created within the same second.
func ListPosts(ctx context.Context, db *sql.DB) ([]Post, error) {
	return queryPosts(ctx, db,
		`SELECT `+postColumns+` `+postFrom+` ORDER BY p.created_at DESC, p.id DESC`)
}

func ListPostsByGroup(ctx context.Context, db *sql.DB, groupID int64) ([]Post, error) {
	return queryPosts(ctx, db,
		`SELECT `+postColumns+` `+postFrom+`
		WHERE p.group_id = ? ORDER BY p.created_at DESC, p.id DESC`, groupID)
}

func ListPostsByAuthor(ctx context.Context, db *sql.DB, authorID int64) ([]Post, error) {
	return queryPosts(ctx, db,
		`SELECT `+postColumns+` `+postFrom+`
		WHERE p.user_id = ? ORDER BY p.created_at DESC, p.id DESC`, authorID)
}

// ListPostsByFollowed returns posts authored by anyone userID follows.
func ListPostsByFollowed(ctx context.Context, db *sql.DB, userID int64) ([]Post, error) {
	return queryPosts(ctx, db,
		`SELECT `+postColumns+` `+postFrom+`
		JOIN follows f ON f.author_id = p.user_id
		WHERE f.user_id = ? ORDER BY p.created_at DESC, p.id DESC`, userID)
}

func CountPostsByAuthor(ctx context.Context, db *sql.DB, authorID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE user_id = ?`, authorID).Scan(&n)
	return n, err
}

func queryPosts(ctx context.Context, db *sql.DB, query string, args ...any) ([]Post, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []Post
	for rows.Next() {
		var p Post
		var groupID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.UserID, &groupID, &p.Text, &p.Image, &p.CreatedAt,
			&p.Author, &p.GroupSlug, &p.GroupTitle); err != nil {
			return nil, err
		}
		if groupID.Valid {
			p.GroupID = &groupID.Int64
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// comments

func CreateComment(ctx context.Context, db *sql.DB, postID, userID int64, text string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO comments (post_id, user_id, text) VALUES (?, ?, ?)`, postID, userID, text)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func GetComment(ctx context.Context, db *sql.DB, id int64) (*Comment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT c.id, c.post_id, c.user_id, c.text, c.created_at, u.username
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.id = ?`, id)
	var c Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.CreatedAt, &c.Author); err != nil {
		return nil, err
	}
	return &c, nil
}

func ListComments(ctx context.Context, db *sql.DB, postID int64) ([]Comment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.user_id, c.text, c.created_at, u.username
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ? ORDER BY c.created_at DESC, c.id DESC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cs []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.CreatedAt, &c.Author); err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, rows.Err()
}

// follows

func FollowExists(ctx context.Context, db *sql.DB, userID, authorID int64) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE user_id = ? AND author_id = ?`, userID, authorID).Scan(&n)
	return n > 0, err
}

func CreateFollow(ctx context.Context, db *sql.DB, userID, authorID int64) error {
	// PK (user_id, author_id) makes the edge unique; a racing duplicate
	// insert is treated as already-followed.
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO follows (user_id, author_id) VALUES (?, ?)`, userID, authorID)
	return err
}

func DeleteFollow(ctx context.Context, db *sql.DB, userID, authorID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM follows WHERE user_id = ? AND author_id = ?`, userID, authorID)
	return err
}

func CountFollowers(ctx context.Context, db *sql.DB, authorID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE author_id = ?`, authorID).Scan(&n)
	return n, err
}
