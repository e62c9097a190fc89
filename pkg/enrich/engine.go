// Package enrich turns bare logins into AccountRecords at a configurable
// cost tier.
package enrich

import (
	"context"
	"sync"
	"time"

	"ghsync/pkg/github"
	"ghsync/pkg/logger"
)

// Fetcher is the slice of the API client the engine needs.
type Fetcher interface {
	GetProfile(ctx context.Context, login string) (*github.Profile, error)
	GetTopLanguage(ctx context.Context, login string) (string, error)
	GetRepositories(ctx context.Context, login string, limit int) ([]github.Repository, error)
}

// Engine enriches logins and caches the result per login. Concurrent
// first callers for the same login share one fetch through an in-flight
// registry.
type Engine struct {
	fetcher Fetcher
	level   Level
	logger  logger.Logger

	mu       sync.Mutex
	cache    map[string]*AccountRecord
	inFlight map[string]chan struct{}
}

// New creates an Engine at the given level.
func New(fetcher Fetcher, level Level, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{
		fetcher:  fetcher,
		level:    level,
		logger:   log,
		cache:    make(map[string]*AccountRecord),
		inFlight: make(map[string]chan struct{}),
	}
}

// Enrich builds the record for login, reusing the cache when possible.
// basic, when non-nil, seeds id and profile URL without an extra call.
func (e *Engine) Enrich(ctx context.Context, login string, basic *github.User) (*AccountRecord, error) {
	for {
		e.mu.Lock()
		if rec, ok := e.cache[login]; ok {
			e.mu.Unlock()
			return rec, nil
		}
		if done, ok := e.inFlight[login]; ok {
			e.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		e.inFlight[login] = done
		e.mu.Unlock()

		rec := e.build(ctx, login, basic)

		e.mu.Lock()
		e.cache[login] = rec
		delete(e.inFlight, login)
		e.mu.Unlock()
		close(done)
		return rec, nil
	}
}

// Cached returns the record for login if one exists.
func (e *Engine) Cached(login string) (*AccountRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.cache[login]
	return rec, ok
}

// build runs the lookups for the configured level. Each lookup degrades
// independently; a failed call leaves its fields at zero values and logs
// a warning.
func (e *Engine) build(ctx context.Context, login string, basic *github.User) *AccountRecord {
	start := time.Now()
	rec := &AccountRecord{
		Login: login,
		Level: e.level,
	}
	if basic != nil {
		rec.ID = basic.ID
		rec.ProfileURL = basic.HTMLURL
	}

	if e.level == LevelBalanced || e.level == LevelComprehensive {
		e.addProfile(ctx, login, rec)
	}

	e.addTopLanguage(ctx, login, rec)

	if e.level == LevelComprehensive {
		e.addRepositoryStats(ctx, login, rec)
	}

	rec.ProcessingMs = time.Since(start).Milliseconds()
	return rec
}

func (e *Engine) addProfile(ctx context.Context, login string, rec *AccountRecord) {
	profile, err := e.fetcher.GetProfile(ctx, login)
	if err != nil {
		e.logger.WarnWithFields("profile lookup failed, continuing with defaults", map[string]interface{}{
			"login": login,
			"error": err.Error(),
		})
		return
	}

	rec.ID = profile.ID
	rec.DisplayName = profile.Name
	rec.Bio = profile.Bio
	rec.Company = profile.Company
	rec.Location = profile.Location
	rec.Email = profile.Email
	rec.Blog = profile.Blog
	rec.PublicRepos = profile.PublicRepos
	rec.Followers = profile.Followers
	rec.Following = profile.Following
	rec.CreatedAt = profile.CreatedAt
	rec.ProfileURL = profile.HTMLURL

	if profile.Blog != "" {
		rec.SocialLinks = map[string]string{"blog": profile.Blog}
	}
}

func (e *Engine) addTopLanguage(ctx context.Context, login string, rec *AccountRecord) {
	lang, err := e.fetcher.GetTopLanguage(ctx, login)
	if err != nil {
		e.logger.WarnWithFields("language lookup failed, continuing without", map[string]interface{}{
			"login": login,
			"error": err.Error(),
		})
		return
	}
	rec.TopLanguage = lang
}

// addRepositoryStats aggregates per-repository languages and contribution
// rollups. Forks are excluded so the stats reflect the account's own
// work.
func (e *Engine) addRepositoryStats(ctx context.Context, login string, rec *AccountRecord) {
	repos, err := e.fetcher.GetRepositories(ctx, login, 100)
	if err != nil {
		e.logger.WarnWithFields("repository lookup failed, continuing without", map[string]interface{}{
			"login": login,
			"error": err.Error(),
		})
		return
	}

	counts := make(map[string]int)
	total := 0
	for _, repo := range repos {
		if repo.Fork {
			continue
		}
		rec.TotalStars += repo.Stars
		rec.TotalForks += repo.Forks
		if repo.Language == "" {
			continue
		}
		counts[repo.Language]++
		total++
	}

	if total > 0 {
		rec.LanguageStats = make(map[string]float64, len(counts))
		top, topCount := "", 0
		for lang, n := range counts {
			rec.LanguageStats[lang] = float64(n) / float64(total) * 100
			if n > topCount {
				top, topCount = lang, n
			}
		}
		if rec.TopLanguage == "" {
			rec.TopLanguage = top
		}
	}
}
