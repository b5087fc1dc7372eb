package scratch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMyStuffNormalize(t *testing.T) {
	raw := `{
		"pk": 12345,
		"fields": {
			"title": "Platformer",
			"description": "jump around",
			"view_count": 10,
			"love_count": 3,
			"favorite_count": 2,
			"remixers_count": 1,
			"datetime_created": "2024-01-02T03:04:05",
			"datetime_modified": "2024-06-07T08:09:10",
			"isPublished": true
		}
	}`

	var m myStuffProject
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	p := m.normalize()
	assert.Equal(t, int64(12345), p.ID)
	assert.Equal(t, "Platformer", p.Title)
	assert.Equal(t, "jump around", p.Description)
	assert.True(t, p.Public)
	assert.Equal(t, int64(10), p.Stats.Views)
	assert.Equal(t, int64(3), p.Stats.Loves)
	assert.Equal(t, int64(2), p.Stats.Favorites)
	assert.Equal(t, int64(1), p.Stats.Remixes)
	assert.Equal(t, "2024-01-02T03:04:05", p.History.Created)
	assert.Equal(t, "2024-06-07T08:09:10", p.History.Modified)
}

func TestProjectDecodesAPIShape(t *testing.T) {
	raw := `{
		"id": 104,
		"title": "Weekend Chess",
		"public": false,
		"author": {"id": 42, "username": "kidslab"},
		"stats": {"views": 7, "loves": 1, "favorites": 0, "remixes": 0},
		"history": {"created": "2024-01-01T00:00:00.000Z", "modified": "2024-02-01T00:00:00.000Z"},
		"project_token": "104_secret"
	}`

	var p Project
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, int64(104), p.ID)
	assert.False(t, p.Public)
	require.NotNil(t, p.Author)
	assert.Equal(t, "kidslab", p.Author.Username)
	assert.Equal(t, int64(7), p.Stats.Views)
	assert.Equal(t, "104_secret", p.ProjectToken)
}
