package scratch

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoints holds the base URLs of the Scratch services. Tests point
// these at an httptest server.
type Endpoints struct {
	// Base is the main site, used for CSRF, login and the MyStuff API.
	Base string
	// API is the public REST API.
	API string
	// Projects serves raw project manifests.
	Projects string
	// Assets serves costume and sound files.
	Assets string
}

// DefaultEndpoints returns the production Scratch endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Base:     "https://scratch.mit.edu",
		API:      "https://api.scratch.mit.edu",
		Projects: "https://projects.scratch.mit.edu",
		Assets:   "https://assets.scratch.mit.edu",
	}
}

// CSRFTokenURL returns the endpoint that sets the scratchcsrftoken cookie.
func (e Endpoints) CSRFTokenURL() string {
	return e.Base + "/csrf_token/"
}

// LoginURL returns the accounts login endpoint.
func (e Endpoints) LoginURL() string {
	return e.Base + "/accounts/login/"
}

// UserURL returns the public profile endpoint for a user.
func (e Endpoints) UserURL(username string) string {
	return fmt.Sprintf("%s/users/%s", e.API, url.PathEscape(username))
}

// UserProjectsURL returns the shared-projects listing for a user with
// offset pagination.
func (e Endpoints) UserProjectsURL(username string, limit, offset int) string {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("offset", fmt.Sprintf("%d", offset))
	return fmt.Sprintf("%s/users/%s/projects?%s", e.API, url.PathEscape(username), params.Encode())
}

// MyStuffURL returns the site API listing that includes unshared
// projects, paginated by page number.
func (e Endpoints) MyStuffURL(page int) string {
	params := url.Values{}
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("ascsort", "")
	params.Set("descsort", "")
	return fmt.Sprintf("%s/site-api/projects/all/?%s", e.Base, params.Encode())
}

// ProjectURL returns the metadata endpoint for a project.
func (e Endpoints) ProjectURL(projectID int64) string {
	return fmt.Sprintf("%s/projects/%d", e.API, projectID)
}

// ProjectManifestURL returns the raw manifest endpoint, with the
// per-project access token when one is known.
func (e Endpoints) ProjectManifestURL(projectID int64, projectToken string) string {
	u := fmt.Sprintf("%s/%d", e.Projects, projectID)
	if projectToken != "" {
		u += "?token=" + url.QueryEscape(projectToken)
	}
	return u
}

// AssetURL returns the download endpoint for a named asset.
func (e Endpoints) AssetURL(name string) string {
	return fmt.Sprintf("%s/internalapi/asset/%s/get/", e.Assets, url.PathEscape(name))
}

// SafeTitle turns a project title into a filesystem-safe base name
// of the form <title>_<id>. Only alphanumerics, spaces, dashes and
// underscores survive; an empty result falls back to project_<id>.
func SafeTitle(title string, projectID int64) string {
	var b strings.Builder
	for _, c := range title {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ', c == '-', c == '_':
			b.WriteRune(c)
		}
	}
	safe := strings.TrimSpace(b.String())
	if safe == "" {
		safe = "project"
	}
	return fmt.Sprintf("%s_%d", safe, projectID)
}

// IsValidAssetName reports whether name looks like an md5 hash with a
// short extension, the only shape the asset service serves. Anything
// else is rejected before it becomes a URL component or zip entry.
func IsValidAssetName(name string) bool {
	dot := strings.IndexByte(name, '.')
	if dot != 32 {
		return false
	}
	for _, c := range name[:32] {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	ext := name[33:]
	if len(ext) == 0 || len(ext) > 5 {
		return false
	}
	for _, c := range ext {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
