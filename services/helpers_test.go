package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/bloghub/config"
	"github.com/cppla/bloghub/models"
)

var (
	dbSeq       atomic.Int64
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("%s_%d", unsafeChars.ReplaceAllString(t.Name(), "_"), dbSeq.Add(1))
	db, err := config.OpenDatabase(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), "silent")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	u := &models.User{
		ExternalID: "ext_" + username,
		Username:   username,
		Email:      username + "@example.com",
		Role:       role,
		IsActive:   true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: categorySlug(name), IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

func ptr[T any](v T) *T {
	return &v
}

// longContent returns content of n words, comfortably above the minimum length.
func longContent(n int) string {
	return strings.TrimSpace(strings.Repeat("lorem ", n))
}

func postInput(title, categoryID string, published bool) PostInput {
	return PostInput{
		Title:       ptr(title),
		Content:     ptr(longContent(60)),
		CategoryID:  ptr(categoryID),
		IsPublished: ptr(published),
	}
}

func createPost(t *testing.T, svc *PostService, author *models.User, title, categoryID string, published bool) *models.Post {
	t.Helper()
	p, err := svc.Create(context.Background(), author, postInput(title, categoryID, published))
	require.NoError(t, err)
	return p
}

type recordingViews struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingViews) Record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recordingViews) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}
