package scratch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpointURLs(t *testing.T) {
	e := DefaultEndpoints()

	assert.Equal(t, "https://scratch.mit.edu/csrf_token/", e.CSRFTokenURL())
	assert.Equal(t, "https://scratch.mit.edu/accounts/login/", e.LoginURL())
	assert.Equal(t, "https://api.scratch.mit.edu/users/griffpatch", e.UserURL("griffpatch"))
	assert.Equal(t, "https://api.scratch.mit.edu/projects/104", e.ProjectURL(104))
	assert.Equal(t, "https://projects.scratch.mit.edu/104", e.ProjectManifestURL(104, ""))
	assert.Equal(t, "https://projects.scratch.mit.edu/104?token=abc_def", e.ProjectManifestURL(104, "abc_def"))
	assert.Contains(t, e.MyStuffURL(2), "/site-api/projects/all/?")
	assert.Contains(t, e.MyStuffURL(2), "page=2")
	assert.Contains(t, e.UserProjectsURL("griffpatch", 40, 80), "limit=40")
	assert.Contains(t, e.UserProjectsURL("griffpatch", 40, 80), "offset=80")
	assert.Equal(t,
		"https://assets.scratch.mit.edu/internalapi/asset/0123456789abcdef0123456789abcdef.svg/get/",
		e.AssetURL("0123456789abcdef0123456789abcdef.svg"))
}

func TestSafeTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{"plain", "My Game", "My Game_104"},
		{"special chars stripped", "My/Game: v2!", "MyGame v2_104"},
		{"unicode stripped", "Späce Shooter", "Spce Shooter_104"},
		{"keeps dashes and underscores", "my-game_2", "my-game_2_104"},
		{"empty falls back", "", "project_104"},
		{"only special chars falls back", "///:::", "project_104"},
		{"surrounding space trimmed", "  padded  ", "padded_104"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SafeTitle(tt.title, 104))
		})
	}
}

func TestIsValidAssetName(t *testing.T) {
	valid := []string{
		"0123456789abcdef0123456789abcdef.svg",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.wav",
		"0123456789abcdef0123456789abcdef.png",
		"0123456789abcdef0123456789abcdef.mp3",
	}
	for _, name := range valid {
		assert.True(t, IsValidAssetName(name), name)
	}

	invalid := []string{
		"",
		"project.json",
		"0123456789abcdef0123456789abcdef",
		"0123456789ABCDEF0123456789ABCDEF.svg",
		"0123456789abcdef0123456789abcde.svg",
		"0123456789abcdef0123456789abcdef.",
		"0123456789abcdef0123456789abcdef.toolong",
		"../../../etc/passwd",
		"0123456789abcdef0123456789abcdef.s/g",
	}
	for _, name := range invalid {
		assert.False(t, IsValidAssetName(name), name)
	}
}
