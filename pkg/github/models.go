package github

// User is the compact account representation returned by the
// follower/following collection endpoints.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
	Type      string `json:"type"`
}

// Profile is the full account representation returned by /users/{login}
// and /user.
type Profile struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Email       string `json:"email"`
	Blog        string `json:"blog"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	HTMLURL     string `json:"html_url"`
	// CreatedAt is kept as the raw RFC 3339 string; consumers that need the
	// age parse it themselves and fail open on garbage.
	CreatedAt string `json:"created_at"`
	Type      string `json:"type"`
}

// Repository is the subset of /users/{login}/repos used for language and
// contribution rollups.
type Repository struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Stars    int    `json:"stargazers_count"`
	Forks    int    `json:"forks_count"`
	Fork     bool   `json:"fork"`
}
