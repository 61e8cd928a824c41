package server

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog/internal/app"
	"blog/internal/auth"
	"blog/internal/feed"
	"blog/internal/models"
)

type Server struct {
	DB     *sql.DB
	Cfg    app.Config
	Engine *feed.Engine
	Log    *zap.Logger

	tmpl  map[string]*template.Template
	cache *pageCache
	mux   *chi.Mux
}

func New(db *sql.DB, cfg app.Config, log *zap.Logger) (*Server, error) {
	templates := map[string]*template.Template{}
	layout := filepath.Join(cfg.TemplateDir, "layout.html")
	pages, err := filepath.Glob(filepath.Join(cfg.TemplateDir, "*.html"))
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		if filepath.Base(page) == "layout.html" {
			continue
		}
		t, err := template.ParseFiles(layout, page)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(page), ".html")
		templates[name] = t
	}

	s := &Server{
		DB:     db,
		Cfg:    cfg,
		Engine: feed.New(db),
		Log:    log,
		tmpl:   templates,
		cache:  newPageCache(cfg.CacheTTL),
	}
	s.mux = s.routes()
	return s, nil
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.accessLog)
	r.Use(s.withSession)

	r.Get("/", s.handleIndex)
	r.Get("/group/{slug}/", s.handleGroup)
	r.Get("/profile/{username}/", s.handleProfile)
	r.Get("/profile/{username}/follow/", s.requireAuth(s.handleFollow))
	r.Get("/profile/{username}/unfollow/", s.requireAuth(s.handleUnfollow))
	r.Get("/posts/{id}/", s.handlePostDetail)
	r.Get("/posts/{id}/edit/", s.requireAuth(s.handleEditForm))
	r.Post("/posts/{id}/edit/", s.requireAuth(s.handleEditSubmit))
	r.Post("/posts/{id}/comment/", s.requireAuth(s.handleComment))
	r.Get("/create/", s.requireAuth(s.handleCreateForm))
	r.Post("/create/", s.requireAuth(s.handleCreateSubmit))
	r.Get("/follow/", s.requireAuth(s.handleFollowFeed))

	r.Get("/auth/signup/", s.handleSignup)
	r.Post("/auth/signup/", s.handleSignup)
	r.Get("/auth/login/", s.handleLogin)
	r.Post("/auth/login/", s.handleLogin)
	r.Post("/auth/logout/", s.handleLogout)

	r.Handle("/static/*", http.StripPrefix("/static/",
		http.FileServer(http.Dir("web/static"))))
	r.Handle("/media/*", http.StripPrefix("/media/",
		http.FileServer(http.Dir(s.Cfg.MediaDir))))

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	body, err := s.renderBytes(name, data)
	if err != nil {
		s.Log.Error("render", zap.String("template", name), zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

func (s *Server) renderBytes(name string, data any) ([]byte, error) {
	t, ok := s.tmpl[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) currentUser(r *http.Request) *models.User {
	uid, ok := auth.UserIDFrom(r.Context())
	if !ok {
		return nil
	}
	u, err := models.GetUserByID(r.Context(), s.DB, uid)
	if err != nil {
		return nil
	}
	return u
}

func pageNum(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// handleIndex serves the global feed. Rendered pages are cached per page
// number for the configured TTL; post writes clear the cache.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := pageNum(r)
	user := s.currentUser(r)

	// the rendered page embeds the caller's nav bar, so only anonymous
	// requests share the cache
	key := fmt.Sprintf("/?page=%d", page)
	if user == nil {
		if body, ok := s.cache.Get(key); ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(body)
			return
		}
	}

	feedPage, err := s.Engine.GlobalFeed(r.Context(), page)
	if err != nil {
		s.serverError(w, err)
		return
	}
	body, err := s.renderBytes("index", map[string]any{
		"Page": feedPage,
		"User": user,
	})
	if err != nil {
		s.serverError(w, err)
		return
	}
	if user == nil {
		s.cache.Put(key, body)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	group, feedPage, err := s.Engine.GroupFeed(r.Context(), chi.URLParam(r, "slug"), pageNum(r))
	if errors.Is(err, feed.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, "group", map[string]any{
		"Group": group,
		"Page":  feedPage,
		"User":  s.currentUser(r),
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFrom(r.Context())
	author, feedPage, following, err := s.Engine.AuthorFeed(r.Context(), uid, chi.URLParam(r, "username"), pageNum(r))
	if errors.Is(err, feed.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	postCount, err := models.CountPostsByAuthor(r.Context(), s.DB, author.ID)
	if err != nil {
		s.serverError(w, err)
		return
	}
	followers, err := models.CountFollowers(r.Context(), s.DB, author.ID)
	if err != nil {
		s.serverError(w, err)
		return
	}
	data := map[string]any{
		"Author":    author,
		"Page":      feedPage,
		"User":      s.currentUser(r),
		"PostCount": postCount,
		"Followers": followers,
		// follow state is only known for authenticated callers
		"FollowKnown": following != nil,
	}
	if following != nil {
		data["IsFollowing"] = *following
	}
	s.render(w, "profile", data)
}

func (s *Server) handlePostDetail(w http.ResponseWriter, r *http.Request) {
	id := postID(r)
	post, comments, err := s.Engine.PostDetail(r.Context(), id)
	if errors.Is(err, feed.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, "post_detail", map[string]any{
		"Post":     post,
		"Comments": comments,
		"User":     s.currentUser(r),
	})
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request, uid int64) {
	s.renderPostForm(w, r, nil, "")
}

func (s *Server) handleCreateSubmit(w http.ResponseWriter, r *http.Request, uid int64) {
	text := r.FormValue("text")
	groupID, err := formGroupID(r)
	if err != nil {
		s.renderPostForm(w, r, nil, "unknown group")
		return
	}
	// reject empty text before the upload lands on disk, or a failed
	// create would leave an orphaned media file
	if strings.TrimSpace(text) == "" {
		s.renderPostForm(w, r, nil, "text must not be empty")
		return
	}
	image, err := s.saveImage(r)
	if err != nil {
		s.serverError(w, err)
		return
	}

	post, err := s.Engine.CreatePost(r.Context(), uid, text, groupID, image)
	if errors.Is(err, feed.ErrEmptyText) {
		s.renderPostForm(w, r, nil, "text must not be empty")
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.cache.Clear()
	http.Redirect(w, r, "/profile/"+post.Author+"/", http.StatusSeeOther)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request, uid int64) {
	id := postID(r)
	post, _, err := s.Engine.PostDetail(r.Context(), id)
	if errors.Is(err, feed.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	if post.UserID != uid {
		http.Redirect(w, r, postURL(id), http.StatusSeeOther)
		return
	}
	s.renderPostForm(w, r, post, "")
}

func (s *Server) handleEditSubmit(w http.ResponseWriter, r *http.Request, uid int64) {
	id := postID(r)
	current, _, err := s.Engine.PostDetail(r.Context(), id)
	if errors.Is(err, feed.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	if current.UserID != uid {
		// non-authors land on the post, not on an error page
		http.Redirect(w, r, postURL(id), http.StatusSeeOther)
		return
	}

	text := r.FormValue("text")
	groupID, err := formGroupID(r)
	if err != nil {
		s.renderPostForm(w, r, current, "unknown group")
		return
	}
	// reject empty text before the upload lands on disk, or a failed
	// edit would leave an orphaned media file
	if strings.TrimSpace(text) == "" {
		s.renderPostForm(w, r, current, "text must not be empty")
		return
	}
	image, err := s.saveImage(r)
	if err != nil {
		s.serverError(w, err)
		return
	}

	post, err := s.Engine.EditPost(r.Context(), uid, id, text, groupID, image)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.cache.Clear()
	http.Redirect(w, r, postURL(post.ID), http.StatusSeeOther)
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request, uid int64) {
	id := postID(r)
	_, err := s.Engine.AddComment(r.Context(), uid, id, r.FormValue("text"))
	if errors.Is(err, feed.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil && !errors.Is(err, feed.ErrEmptyText) {
		s.serverError(w, err)
		return
	}
	// an empty comment is dropped silently; either way, back to the post
	http.Redirect(w, r, postURL(id), http.StatusSeeOther)
}

func (s *Server) handleFollowFeed(w http.ResponseWriter, r *http.Request, uid int64) {
	feedPage, err := s.Engine.FollowFeed(r.Context(), uid, pageNum(r))
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, "follow", map[string]any{
		"Page": feedPage,
		"User": s.currentUser(r),
	})
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request, uid int64) {
	username := chi.URLParam(r, "username")
	_, err := s.Engine.Follow(r.Context(), uid, username)
	if errors.Is(err, feed.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/profile/"+username+"/", http.StatusSeeOther)
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request, uid int64) {
	username := chi.URLParam(r, "username")
	_, err := s.Engine.Unfollow(r.Context(), uid, username)
	if errors.Is(err, feed.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	http.Redirect(w, r, "/profile/"+username+"/", http.StatusSeeOther)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, "signup", map[string]any{"User": s.currentUser(r)})
		return
	}
	_, err := auth.Register(r.Context(), s.DB,
		r.FormValue("email"), r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		s.render(w, "signup", map[string]any{"Error": err.Error()})
		return
	}
	http.Redirect(w, r, "/auth/login/", http.StatusSeeOther)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, "login", map[string]any{
			"Next": r.URL.Query().Get("next"),
			"User": s.currentUser(r),
		})
		return
	}
	sid, _, err := auth.Login(r.Context(), s.DB,
		r.FormValue("email"), r.FormValue("password"), s.Cfg.SessionLifetime)
	if err != nil {
		s.render(w, "login", map[string]any{
			"Error": "invalid email or password",
			"Next":  r.FormValue("next"),
		})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, safeNext(r.FormValue("next")), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.CookieName); err == nil {
		_ = auth.Logout(r.Context(), s.DB, c.Value)
		http.SetCookie(w, &http.Cookie{Name: auth.CookieName, Path: "/", MaxAge: -1})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// helpers

func (s *Server) renderPostForm(w http.ResponseWriter, r *http.Request, post *models.Post, errMsg string) {
	groups, err := models.ListGroups(r.Context(), s.DB)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, "post_form", map[string]any{
		"Post":   post,
		"Groups": groups,
		"IsEdit": post != nil,
		"Error":  errMsg,
		"User":   s.currentUser(r),
	})
}

// saveImage stores an uploaded image, if any, under the media dir and
// returns its relative path. A request without a file is not an error.
func (s *Server) saveImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", nil
	}
	defer file.Close()

	dir := filepath.Join(s.Cfg.MediaDir, "posts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	name := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return "posts/" + name, nil
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.Log.Error("internal error", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func postID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func postURL(id int64) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// safeNext restricts a login return path to site-local targets. A bare
// "/" prefix is not enough: "//host" is protocol-relative and would
// send the browser off-site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

func formGroupID(r *http.Request) (*int64, error) {
	v := strings.TrimSpace(r.FormValue("group"))
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
