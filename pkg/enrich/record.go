package enrich

// Level selects how much data a record carries and how many API calls it
// costs.
type Level string

const (
	LevelFast          Level = "fast"
	LevelBalanced      Level = "balanced"
	LevelComprehensive Level = "comprehensive"
)

// ParseLevel maps a config string onto a Level, defaulting to balanced.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelFast, LevelBalanced, LevelComprehensive:
		return Level(s)
	default:
		return LevelBalanced
	}
}

// AccountRecord is everything known about one account after enrichment.
// Immutable once built; cached per login for the run's lifetime.
type AccountRecord struct {
	ID          int64  `json:"id,omitempty"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Email       string `json:"email,omitempty"`
	Blog        string `json:"blog,omitempty"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	TopLanguage string `json:"top_language,omitempty"`
	// LanguageStats maps language to its share of the account's
	// repositories, in percent.
	LanguageStats map[string]float64 `json:"language_stats,omitempty"`
	SocialLinks   map[string]string  `json:"social_links,omitempty"`
	CreatedAt     string             `json:"created_at,omitempty"`
	ProfileURL    string             `json:"profile_url,omitempty"`
	Level         Level              `json:"enrichment_level"`

	TotalStars int `json:"total_stars,omitempty"`
	TotalForks int `json:"total_forks,omitempty"`
	// ProcessingMs is how long the enrichment took end to end.
	ProcessingMs int64 `json:"processing_ms,omitempty"`
}

// ToMap flattens the record into the generic key-value shape the storage
// engine persists.
func (r *AccountRecord) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"login":            r.Login,
		"public_repos":     r.PublicRepos,
		"followers":        r.Followers,
		"following":        r.Following,
		"enrichment_level": string(r.Level),
	}
	if r.ID != 0 {
		m["id"] = r.ID
	}
	if r.DisplayName != "" {
		m["display_name"] = r.DisplayName
	}
	if r.Bio != "" {
		m["bio"] = r.Bio
	}
	if r.Company != "" {
		m["company"] = r.Company
	}
	if r.Location != "" {
		m["location"] = r.Location
	}
	if r.Email != "" {
		m["email"] = r.Email
	}
	if r.Blog != "" {
		m["blog"] = r.Blog
	}
	if r.TopLanguage != "" {
		m["top_language"] = r.TopLanguage
	}
	if r.CreatedAt != "" {
		m["created_at"] = r.CreatedAt
	}
	if r.ProfileURL != "" {
		m["profile_url"] = r.ProfileURL
	}
	if r.TotalStars > 0 {
		m["total_stars"] = r.TotalStars
	}
	if r.TotalForks > 0 {
		m["total_forks"] = r.TotalForks
	}
	return m
}
