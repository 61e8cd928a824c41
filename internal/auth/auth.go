package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"blog/internal/models"
)

var (
	ErrInvalidLogin = errors.New("invalid email or password")
	ErrNoSession    = errors.New("session not found")
)

// CookieName is the session cookie used across handlers and middleware.
const CookieName = "session_id"

type ctxKeyUserID struct{}

func WithUserID(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, uid)
}

// UserIDFrom returns the authenticated caller's id, or (0, false) for an
// anonymous request.
func UserIDFrom(ctx context.Context) (int64, bool) {
	v := ctx.Value(ctxKeyUserID{})
	if v == nil {
		return 0, false
	}
	id, _ := v.(int64)
	return id, id != 0
}

func Register(ctx context.Context, db *sql.DB, email, username, password string) (int64, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return 0, errors.New("email, username and password are required")
	}
	if len(password) < 6 {
		return 0, errors.New("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	return models.CreateUser(ctx, db, email, username, string(hash))
}

// Login verifies the credentials and opens a fresh session, revoking any
// previous sessions of the same user.
func Login(ctx context.Context, db *sql.DB, email, password string, lifetime time.Duration) (string, int64, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := models.GetUserByEmail(ctx, db, email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrInvalidLogin
	}
	if err != nil {
		return "", 0, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", 0, ErrInvalidLogin
	}
	sid := uuid.NewString()
	if err := models.CreateSession(ctx, db, user.ID, sid, time.Now().Add(lifetime)); err != nil {
		return "", 0, err
	}
	return sid, user.ID, nil
}

func Logout(ctx context.Context, db *sql.DB, sid string) error {
	return models.RevokeSession(ctx, db, sid)
}

// UserFromSession resolves a session cookie value to a user id. Expired
// and revoked sessions report ErrNoSession.
func UserFromSession(ctx context.Context, db *sql.DB, sid string) (int64, error) {
	sess, err := models.GetSession(ctx, db, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, err
	}
	if sess.RevokedAt != nil || sess.ExpiresAt.Before(time.Now()) {
		return 0, ErrNoSession
	}
	return sess.UserID, nil
}
