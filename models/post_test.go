package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingTime(t *testing.T) {
	tests := []struct {
		name  string
		words int
		want  int
	}{
		{"one word", 1, 1},
		{"exactly one minute", 200, 1},
		{"just over", 201, 2},
		{"four hundred", 400, 2},
		{"long read", 1001, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.TrimSpace(strings.Repeat("word ", tt.words))
			assert.Equal(t, tt.want, ReadingTime(content))
		})
	}
}

func TestSetPublishedStampsOnce(t *testing.T) {
	var p Post
	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	p.SetPublished(false, first)
	assert.Nil(t, p.PublishedAt)

	p.SetPublished(true, first)
	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, first, *p.PublishedAt)

	p.SetPublished(false, first.Add(time.Hour))
	p.SetPublished(true, first.Add(2*time.Hour))
	assert.True(t, p.IsPublished)
	assert.Equal(t, first, *p.PublishedAt)
}

func TestEditableAndVisible(t *testing.T) {
	author := &User{ID: "a", Role: RoleUser}
	other := &User{ID: "b", Role: RoleUser}
	admin := &User{ID: "c", Role: RoleAdmin}
	moderator := &User{ID: "d", Role: RoleModerator}
	draft := &Post{AuthorID: "a"}

	assert.True(t, draft.EditableBy(author))
	assert.True(t, draft.EditableBy(admin))
	assert.False(t, draft.EditableBy(other))
	assert.False(t, draft.EditableBy(moderator))
	assert.False(t, draft.EditableBy(nil))

	assert.False(t, draft.VisibleTo(nil))
	assert.False(t, draft.VisibleTo(other))
	assert.True(t, draft.VisibleTo(author))

	draft.IsPublished = true
	assert.True(t, draft.VisibleTo(nil))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "web dev"}, NormalizeTags([]string{" Go ", "", "WEB Dev"}))
}

func TestActiveCommentsAndLikes(t *testing.T) {
	p := Post{
		Comments: []Comment{{ID: "1", IsActive: true}, {ID: "2"}, {ID: "3", IsActive: true}},
		Likes:    []PostLike{{UserID: "u1"}, {UserID: "u2"}},
	}
	active := p.ActiveComments()
	require.Len(t, active, 2)
	assert.Equal(t, "3", active[1].ID)
	assert.Equal(t, []string{"u1", "u2"}, p.LikedBy())
}

func TestObjectIDs(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 24)
	assert.True(t, IsObjectID(id))
	assert.False(t, IsObjectID("hello-world"))
	assert.False(t, IsObjectID("zzzzzzzzzzzzzzzzzzzzzzzz"))
	assert.NotEqual(t, id, NewID())
}
