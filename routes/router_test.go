package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/bloghub/config"
	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/services"
	"github.com/cppla/bloghub/utils"
)

const testSecret = "router-test-secret"

var dbSeq atomic.Int64

type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Error      string              `json:"error"`
	Errors     []map[string]string `json:"errors"`
	Count      *int                `json:"count"`
	Pagination *utils.Pagination   `json:"pagination"`
	Query      string              `json:"query"`
}

type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	views  *services.ViewCounter
}

// newTestAPI serves the full router over a private in-memory database.
// With countViews set, post reads feed a real view counter.
func newTestAPI(t *testing.T, countViews bool) *testAPI {
	t.Helper()
	db, err := config.OpenDatabase(sqlite.Open(fmt.Sprintf("file:router_%d?mode=memory&cache=shared", dbSeq.Add(1))), "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db))

	cfg := config.AppConfig{
		GinMode:            "test",
		AllowedOrigins:     []string{"http://localhost:3000"},
		IdentityHMACSecret: testSecret,
		AdminSubjects:      []string{"admin_sub"},
		RateLimitPerMinute: 100000,
		CreatePostPerHour:  100,
	}
	verifier, err := utils.NewIdentityVerifier(cfg)
	require.NoError(t, err)

	api := &testAPI{t: t, db: db}
	deps := Deps{Config: cfg, DB: db, Verifier: verifier}
	if countViews {
		api.views = services.NewViewCounter(db, 1, 16)
		deps.Views = api.views
		t.Cleanup(api.views.Stop)
	}
	api.router = SetupRouter(deps)
	return api
}

func (a *testAPI) token(sub, username string) string {
	a.t.Helper()
	claims := utils.IdentityClaims{
		Username: username,
		Email:    username + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(a.t, err)
	return tok
}

func (a *testAPI) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type postJSON struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	URL           string   `json:"url"`
	Content       string   `json:"content"`
	Summary       string   `json:"summary"`
	IsPublished   bool     `json:"isPublished"`
	ReadingTime   int      `json:"readingTime"`
	Tags          []string `json:"tags"`
	Likes         []string `json:"likes"`
	LikesCount    int64    `json:"likesCount"`
	CommentsCount int64    `json:"commentsCount"`
	Author        struct {
		Username string `json:"username"`
	} `json:"author"`
	Category struct {
		Slug string `json:"slug"`
	} `json:"category"`
	Comments []struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		User    struct {
			Username string `json:"username"`
		} `json:"user"`
	} `json:"comments"`
}

var body60 = strings.TrimSpace(strings.Repeat("words ", 60))

func (a *testAPI) createCategory(adminToken, name string) string {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/categories", adminToken, map[string]interface{}{"name": name})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct {
		ID string `json:"id"`
	}](a.t, env.Data).ID
}

func (a *testAPI) createPost(token, title, categoryID string, published bool) postJSON {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/posts", token, map[string]interface{}{
		"title":       title,
		"content":     body60,
		"category":    categoryID,
		"tags":        []string{" Go ", "API"},
		"isPublished": published,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[postJSON](a.t, env.Data)
}

func TestHealthAndFallbackRoutes(t *testing.T) {
	api := newTestAPI(t, false)

	w, env := api.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w, env = api.do(http.MethodGet, "/api/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error)
	assert.False(t, env.Success)
}

func TestPostLifecycle(t *testing.T) {
	api := newTestAPI(t, false)
	admin := api.token("admin_sub", "admin")
	writer := api.token("writer_sub", "writer")
	reader := api.token("reader_sub", "reader")

	catID := api.createCategory(admin, "Technology")

	w, env := api.do(http.MethodPost, "/api/categories", writer, map[string]interface{}{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Error)

	w, env = api.do(http.MethodPost, "/api/posts", writer, map[string]interface{}{
		"title": "Too short body", "content": "tiny", "category": catID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", env.Error)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "content", env.Errors[0]["field"])

	w, env = api.do(http.MethodPost, "/api/posts", writer, map[string]interface{}{
		"title": "First Post Here", "content": body60, "category": catID, "isPublished": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Post published successfully!", env.Message)
	post := decode[postJSON](t, env.Data)
	assert.Equal(t, "first-post-here", post.Slug)
	assert.Equal(t, "/posts/first-post-here", post.URL)
	assert.Equal(t, 1, post.ReadingTime)
	assert.Equal(t, "writer", post.Author.Username)
	assert.Equal(t, "technology", post.Category.Slug)
	assert.Equal(t, []string{}, post.Tags)
	assert.Equal(t, body60[:200], post.Summary)

	w, env = api.do(http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.Total)

	w, env = api.do(http.MethodPost, "/api/posts/"+post.ID+"/comments", reader, map[string]interface{}{"content": "  Great read!  "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Comment added successfully", env.Message)
	added := decode[struct {
		Post    postJSON `json:"post"`
		Comment struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"comment"`
	}](t, env.Data)
	assert.Equal(t, "Great read!", added.Comment.Content)
	assert.NotEmpty(t, added.Comment.ID)
	assert.Equal(t, post.ID, added.Post.ID)
	require.NotEmpty(t, added.Post.Comments)
	last := added.Post.Comments[len(added.Post.Comments)-1]
	assert.Equal(t, "Great read!", last.Content)
	assert.Equal(t, "reader", last.User.Username)
	assert.Equal(t, added.Comment.ID, last.ID)

	w, env = api.do(http.MethodPost, "/api/posts/"+post.ID+"/comments", reader, map[string]interface{}{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = api.do(http.MethodPost, "/api/posts/"+post.ID+"/like", reader, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	like := decode[struct {
		Liked      bool     `json:"liked"`
		Likes      []string `json:"likes"`
		LikesCount int64    `json:"likesCount"`
	}](t, env.Data)
	assert.True(t, like.Liked)
	assert.Equal(t, int64(1), like.LikesCount)

	w, env = api.do(http.MethodGet, "/api/posts/first-post-here", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[postJSON](t, env.Data)
	assert.Equal(t, body60, detail.Content)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "Great read!", detail.Comments[0].Content)
	assert.Equal(t, "reader", detail.Comments[0].User.Username)
	assert.Equal(t, int64(1), detail.CommentsCount)
	assert.Len(t, detail.Likes, 1)

	_, env = api.do(http.MethodPost, "/api/posts/"+post.ID+"/like", reader, nil)
	assert.False(t, decode[struct {
		Liked bool `json:"liked"`
	}](t, env.Data).Liked)

	w, env = api.do(http.MethodPut, "/api/posts/"+post.ID, reader, map[string]interface{}{"title": "Hijacked Title"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = api.do(http.MethodPut, "/api/posts/"+post.ID, writer, map[string]interface{}{"title": "Renamed First Post"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "renamed-first-post", decode[postJSON](t, env.Data).Slug)

	w, env = api.do(http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cats := decode[[]struct {
		Slug      string `json:"slug"`
		PostCount int64  `json:"postCount"`
	}](t, env.Data)
	require.Len(t, cats, 1)
	assert.Equal(t, int64(1), cats[0].PostCount)

	w, env = api.do(http.MethodDelete, "/api/categories/"+catID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "Cannot delete category that has posts")

	w, _ = api.do(http.MethodDelete, "/api/posts/"+post.ID, writer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(http.MethodGet, "/api/posts/"+post.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Post not found", env.Message)

	w, _ = api.do(http.MethodDelete, "/api/categories/"+catID, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDraftsAndMine(t *testing.T) {
	api := newTestAPI(t, false)
	admin := api.token("admin_sub", "admin")
	writer := api.token("writer_sub", "writer")
	catID := api.createCategory(admin, "Life")

	draft := api.createPost(writer, "My Secret Draft", catID, false)
	assert.False(t, draft.IsPublished)
	assert.Equal(t, []string{"go", "api"}, draft.Tags)

	w, _ := api.do(http.MethodGet, "/api/posts/"+draft.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = api.do(http.MethodGet, "/api/posts/"+draft.Slug, api.token("other_sub", "other"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = api.do(http.MethodGet, "/api/posts/"+draft.Slug, writer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = api.do(http.MethodGet, "/api/posts/"+draft.Slug, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := api.do(http.MethodGet, "/api/posts/mine", writer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *env.Count)

	w, env = api.do(http.MethodGet, "/api/posts/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", env.Error)

	w, env = api.do(http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, *env.Count)
}

func TestSearchAndPopular(t *testing.T) {
	api := newTestAPI(t, false)
	admin := api.token("admin_sub", "admin")
	writer := api.token("writer_sub", "writer")
	catID := api.createCategory(admin, "Garden")
	api.createPost(writer, "Growing Tomatoes Indoors", catID, true)
	api.createPost(writer, "Pruning Roses", catID, true)

	w, env := api.do(http.MethodGet, "/api/posts/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Search query is required", env.Message)

	w, env = api.do(http.MethodGet, "/api/posts/search?q=TOMATO", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "TOMATO", env.Query)
	assert.Equal(t, 1, *env.Count)

	w, env = api.do(http.MethodGet, "/api/posts/popular?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *env.Count)
	assert.Nil(t, env.Pagination)

	w, env = api.do(http.MethodGet, "/api/posts?category=garden&limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), env.Pagination.Total)
	assert.True(t, env.Pagination.HasNext)
}

func TestProfileEndpoints(t *testing.T) {
	api := newTestAPI(t, false)
	jane := api.token("jane_sub", "jane")
	_, _ = api.do(http.MethodGet, "/api/auth/me", api.token("taken_sub", "taken"), nil)

	w, env := api.do(http.MethodGet, "/api/auth/me", jane, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "jane", me["username"])
	assert.Equal(t, "jane@example.com", me["email"])
	assert.Equal(t, "user", me["role"])

	w, env = api.do(http.MethodPut, "/api/auth/profile", jane, map[string]interface{}{"username": "bad name!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "username", env.Errors[0]["field"])

	w, env = api.do(http.MethodPut, "/api/auth/profile", jane, map[string]interface{}{"username": "taken"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "duplicate", env.Error)

	w, env = api.do(http.MethodPut, "/api/auth/profile", jane, map[string]interface{}{"username": "jane_doe", "bio": "Hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = api.do(http.MethodGet, "/api/users/jane_doe", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	public := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "Hello", public["bio"])
	assert.NotContains(t, public, "email")
	assert.NotContains(t, public, "role")

	w, _ = api.do(http.MethodGet, "/api/users/jane", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestViewsAndStats(t *testing.T) {
	api := newTestAPI(t, true)

	admin := api.token("admin_sub", "admin")
	writer := api.token("writer_sub", "writer")
	catID := api.createCategory(admin, "News")
	post := api.createPost(writer, "Breaking News Today", catID, true)

	for i := 0; i < 3; i++ {
		w, _ := api.do(http.MethodGet, "/api/posts/"+post.ID, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	api.views.Stop()

	var stored models.Post
	require.NoError(t, api.db.First(&stored, "id = ?", post.ID).Error)
	assert.Equal(t, int64(3), stored.ViewCount)

	w, env := api.do(http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	site := decode[services.SiteStats](t, env.Data)
	assert.Equal(t, int64(1), site.Posts)
	assert.Equal(t, int64(3), site.Views)
	assert.Equal(t, int64(2), site.Users)

	w, env = api.do(http.MethodGet, "/api/posts/"+post.Slug+"/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), decode[services.PostStats](t, env.Data).Views)
}
