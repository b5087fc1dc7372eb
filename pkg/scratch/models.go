package scratch

// Project is the normalized project record used across the CLI. Both
// the public API and the MyStuff site API are mapped into this shape.
type Project struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Public       bool           `json:"public"`
	Stats        ProjectStats   `json:"stats"`
	History      ProjectHistory `json:"history"`
	Author       *ProjectAuthor `json:"author,omitempty"`
	// ProjectToken grants short-lived access to the raw manifest of
	// unshared projects. Only the metadata endpoint returns it.
	ProjectToken string `json:"project_token,omitempty"`
}

// ProjectStats carries the public counters of a project.
type ProjectStats struct {
	Views     int64 `json:"views"`
	Loves     int64 `json:"loves"`
	Favorites int64 `json:"favorites"`
	Remixes   int64 `json:"remixes"`
}

// ProjectHistory carries the timestamps the API reports as RFC 3339
// strings. They are kept as strings; the CLI only displays them.
type ProjectHistory struct {
	Created  string `json:"created,omitempty"`
	Modified string `json:"modified,omitempty"`
	Shared   string `json:"shared,omitempty"`
}

// ProjectAuthor identifies the owning account.
type ProjectAuthor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// User is the public profile record from the API.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// myStuffProject is the envelope the site API wraps each project in.
// The interesting data sits under "fields".
type myStuffProject struct {
	PK     int64 `json:"pk"`
	Fields struct {
		Title            string `json:"title"`
		Description      string `json:"description"`
		ViewCount        int64  `json:"view_count"`
		LoveCount        int64  `json:"love_count"`
		FavoriteCount    int64  `json:"favorite_count"`
		RemixersCount    int64  `json:"remixers_count"`
		DatetimeCreated  string `json:"datetime_created"`
		DatetimeModified string `json:"datetime_modified"`
		IsPublished      bool   `json:"isPublished"`
	} `json:"fields"`
}

// normalize maps the site API envelope to the common Project shape.
func (m myStuffProject) normalize() Project {
	return Project{
		ID:          m.PK,
		Title:       m.Fields.Title,
		Description: m.Fields.Description,
		Public:      m.Fields.IsPublished,
		Stats: ProjectStats{
			Views:     m.Fields.ViewCount,
			Loves:     m.Fields.LoveCount,
			Favorites: m.Fields.FavoriteCount,
			Remixes:   m.Fields.RemixersCount,
		},
		History: ProjectHistory{
			Created:  m.Fields.DatetimeCreated,
			Modified: m.Fields.DatetimeModified,
		},
	}
}

// loginResult is one element of the JSON array the login endpoint
// returns.
type loginResult struct {
	Username string `json:"username"`
	Token    string `json:"token"`
	Msg      string `json:"msg"`
	Success  int    `json:"success"`
}
