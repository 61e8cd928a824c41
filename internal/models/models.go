package models

import "time"

type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

type Group struct {
	ID          int64
	Slug        string
	Title       string
	Description string
}

type Post struct {
	ID        int64
	UserID    int64
	GroupID   *int64
	Text      string
	Image     string
	CreatedAt time.Time

	// joined display fields
	Author     string
	GroupSlug  string
	GroupTitle string
}

type Comment struct {
	ID        int64
	PostID    int64
	UserID    int64
	Text      string
	CreatedAt time.Time

	Author string
}

type Follow struct {
	UserID    int64
	AuthorID  int64
	CreatedAt time.Time
}
