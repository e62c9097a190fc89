// Package analyzer computes relationship sets between the authenticated
// account's followers and following lists.
package analyzer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	errs "ghsync/pkg/errors"
	"ghsync/pkg/github"
	"ghsync/pkg/logger"
)

// Source lists the two sides of the social graph for one account.
type Source interface {
	ListFollowers(ctx context.Context, login string, maxPages int) ([]github.User, error)
	ListFollowing(ctx context.Context, login string, maxPages int) ([]github.User, error)
}

// Stats summarizes the reciprocity of the graph.
type Stats struct {
	Followers     int
	Following     int
	Mutual        int
	NonReciprocal int
	FollowBack    int
	// Ratio is followers per followed account; zero when nothing is
	// followed.
	Ratio float64
}

// Analyzer fetches and caches both relationship lists for a login and
// derives diff sets from them. Lookups are case-insensitive since the
// API preserves display casing that users change freely.
type Analyzer struct {
	source   Source
	login    string
	maxPages int
	logger   logger.Logger

	mu        sync.Mutex
	followers []github.User
	following []github.User
	loaded    bool
}

// New creates an Analyzer for login backed by source.
func New(source Source, login string, maxPages int, log logger.Logger) *Analyzer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Analyzer{
		source:   source,
		login:    login,
		maxPages: maxPages,
		logger:   log,
	}
}

// load fetches both lists once; later calls reuse the cache until
// Invalidate.
func (a *Analyzer) load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded {
		return nil
	}

	followers, err := a.source.ListFollowers(ctx, a.login, a.maxPages)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, 0, "failed to load followers", err)
	}
	following, err := a.source.ListFollowing(ctx, a.login, a.maxPages)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, 0, "failed to load following", err)
	}

	a.followers = followers
	a.following = following
	a.loaded = true

	a.logger.InfoWithFields("relationship lists loaded", map[string]interface{}{
		"login":     a.login,
		"followers": len(followers),
		"following": len(following),
	})
	return nil
}

// Invalidate drops the cached lists so the next query refetches them.
func (a *Analyzer) Invalidate() {
	a.mu.Lock()
	a.followers = nil
	a.following = nil
	a.loaded = false
	a.mu.Unlock()
}

// Followers returns the cached follower list, fetching on first use.
func (a *Analyzer) Followers(ctx context.Context) ([]github.User, error) {
	if err := a.load(ctx); err != nil {
		return nil, err
	}
	return a.followers, nil
}

// Following returns the cached following list, fetching on first use.
func (a *Analyzer) Following(ctx context.Context) ([]github.User, error) {
	if err := a.load(ctx); err != nil {
		return nil, err
	}
	return a.following, nil
}

// NonReciprocal returns accounts the user follows that do not follow
// back, preserving following-list order.
func (a *Analyzer) NonReciprocal(ctx context.Context) ([]github.User, error) {
	if err := a.load(ctx); err != nil {
		return nil, err
	}

	followerSet := loginSet(a.followers)
	seen := make(map[string]struct{}, len(a.following))
	var out []github.User
	for _, u := range a.following {
		key := strings.ToLower(u.Login)
		if _, ok := followerSet[key]; ok {
			continue
		}
		// Lists can carry duplicates when they mutate mid-pagination;
		// a candidate must appear once per run.
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}

// FollowBackCandidates returns followers the user does not follow back,
// preserving follower-list order.
func (a *Analyzer) FollowBackCandidates(ctx context.Context) ([]github.User, error) {
	if err := a.load(ctx); err != nil {
		return nil, err
	}

	followingSet := loginSet(a.following)
	seen := make(map[string]struct{}, len(a.followers))
	var out []github.User
	for _, u := range a.followers {
		key := strings.ToLower(u.Login)
		if _, ok := followingSet[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}

// TargetFollowers lists the followers of each target account and merges
// them into one candidate set, deduplicated case-insensitively across
// targets, preserving fetch order.
func (a *Analyzer) TargetFollowers(ctx context.Context, targets []string) ([]github.User, error) {
	seen := make(map[string]struct{})
	var out []github.User
	for _, target := range targets {
		followers, err := a.source.ListFollowers(ctx, target, a.maxPages)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeUnknown, 0, fmt.Sprintf("failed to load followers of %s", target), err)
		}
		a.logger.InfoWithFields("target followers loaded", map[string]interface{}{
			"target":    target,
			"followers": len(followers),
		})
		for _, u := range followers {
			key := strings.ToLower(u.Login)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, u)
		}
	}
	return out, nil
}

// Mutual returns accounts present on both sides, in following order.
func (a *Analyzer) Mutual(ctx context.Context) ([]github.User, error) {
	if err := a.load(ctx); err != nil {
		return nil, err
	}

	followerSet := loginSet(a.followers)
	var out []github.User
	for _, u := range a.following {
		if _, ok := followerSet[strings.ToLower(u.Login)]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// Stats computes the reciprocity summary for the cached lists.
func (a *Analyzer) Stats(ctx context.Context) (*Stats, error) {
	nonReciprocal, err := a.NonReciprocal(ctx)
	if err != nil {
		return nil, err
	}
	followBack, err := a.FollowBackCandidates(ctx)
	if err != nil {
		return nil, err
	}
	mutual, err := a.Mutual(ctx)
	if err != nil {
		return nil, err
	}

	s := &Stats{
		Followers:     len(a.followers),
		Following:     len(a.following),
		Mutual:        len(mutual),
		NonReciprocal: len(nonReciprocal),
		FollowBack:    len(followBack),
	}
	if s.Following > 0 {
		s.Ratio = float64(s.Followers) / float64(s.Following)
	}
	return s, nil
}

// ExportCSV writes users to path as login,html_url rows with a header.
// Parent directories are created as needed.
func ExportCSV(path string, users []github.User) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"login", "html_url"}); err != nil {
		return err
	}
	for _, u := range users {
		if err := w.Write([]string{u.Login, u.HTMLURL}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func loginSet(users []github.User) map[string]struct{} {
	set := make(map[string]struct{}, len(users))
	for _, u := range users {
		set[strings.ToLower(u.Login)] = struct{}{}
	}
	return set
}
