// Package filter decides which candidate accounts a run acts on, with an
// audit reason for every decision.
package filter

import (
	"fmt"
	"strings"
	"time"

	"ghsync/pkg/config"
	"ghsync/pkg/enrich"
	"ghsync/pkg/logger"
)

// Workflow selects the list polarities. In a follow-back run a
// blacklisted account is rejected; in an unfollow run it is always acted
// on, while a whitelisted account is protected from the unfollow.
type Workflow int

const (
	WorkflowFollowBack Workflow = iota
	WorkflowUnfollow
)

func (w Workflow) String() string {
	switch w {
	case WorkflowFollowBack:
		return "follow_back"
	case WorkflowUnfollow:
		return "unfollow"
	default:
		return "unknown"
	}
}

// Decision is one candidate's verdict with its audit reason.
type Decision struct {
	Accept bool
	Reason string
}

// Engine evaluates candidates against an ordered rule list. The first
// decisive rule wins, which keeps every decision deterministic and
// explainable.
type Engine struct {
	cfg      config.FilterConfig
	workflow Workflow
	logger   logger.Logger

	whitelist map[string]struct{}
	blacklist map[string]struct{}
	languages map[string]struct{}

	now func() time.Time
}

// New creates an Engine for workflow using cfg's rule sets.
func New(cfg config.FilterConfig, workflow Workflow, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{
		cfg:       cfg,
		workflow:  workflow,
		logger:    log,
		whitelist: lowerSet(cfg.Whitelist),
		blacklist: lowerSet(cfg.Blacklist),
		languages: lowerSet(cfg.Languages),
		now:       time.Now,
	}
}

// Decide evaluates the rules in contract order. Whitelist membership
// short-circuits everything else; its outcome depends on the workflow,
// since accepting a candidate in an unfollow run means acting on it.
func (e *Engine) Decide(rec *enrich.AccountRecord) Decision {
	if !e.cfg.Enabled {
		return Decision{Accept: true, Reason: "filtering disabled"}
	}

	login := strings.ToLower(rec.Login)

	if _, ok := e.whitelist[login]; ok {
		if e.workflow == WorkflowUnfollow {
			// Whitelisted accounts are never unfollowed.
			return Decision{Accept: false, Reason: "whitelisted"}
		}
		return Decision{Accept: true, Reason: "whitelisted"}
	}

	if _, ok := e.blacklist[login]; ok {
		if e.workflow == WorkflowUnfollow {
			// Unfollow runs always act on blacklisted accounts.
			return Decision{Accept: true, Reason: "blacklisted"}
		}
		return Decision{Accept: false, Reason: "blacklisted"}
	}

	if len(e.languages) > 0 {
		lang := strings.ToLower(rec.TopLanguage)
		if _, ok := e.languages[lang]; !ok {
			return Decision{Accept: false, Reason: fmt.Sprintf("language mismatch: %s", displayLanguage(rec.TopLanguage))}
		}
	}

	if d, done := e.checkRanges(rec); done {
		return d
	}

	if d, done := e.checkKeywords(rec); done {
		return d
	}

	if d, done := e.checkAccountAge(rec); done {
		return d
	}

	return Decision{Accept: true, Reason: "all filters passed"}
}

func (e *Engine) checkRanges(rec *enrich.AccountRecord) (Decision, bool) {
	if e.cfg.MinRepos > 0 && rec.PublicRepos < e.cfg.MinRepos {
		return Decision{Reason: fmt.Sprintf("repo count: %d", rec.PublicRepos)}, true
	}
	if e.cfg.MaxRepos > 0 && rec.PublicRepos > e.cfg.MaxRepos {
		return Decision{Reason: fmt.Sprintf("repo count: %d", rec.PublicRepos)}, true
	}
	if e.cfg.MinFollowers > 0 && rec.Followers < e.cfg.MinFollowers {
		return Decision{Reason: fmt.Sprintf("follower count: %d", rec.Followers)}, true
	}
	if e.cfg.MaxFollowers > 0 && rec.Followers > e.cfg.MaxFollowers {
		return Decision{Reason: fmt.Sprintf("follower count: %d", rec.Followers)}, true
	}
	if e.cfg.MinFollowing > 0 && rec.Following < e.cfg.MinFollowing {
		return Decision{Reason: fmt.Sprintf("following count: %d", rec.Following)}, true
	}
	return Decision{}, false
}

func (e *Engine) checkKeywords(rec *enrich.AccountRecord) (Decision, bool) {
	bio := strings.ToLower(rec.Bio)

	if len(e.cfg.RequiredKeywords) > 0 {
		found := false
		for _, kw := range e.cfg.RequiredKeywords {
			if kw != "" && strings.Contains(bio, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return Decision{Reason: "missing required keywords"}, true
		}
	}

	for _, kw := range e.cfg.ExcludedKeywords {
		if kw != "" && strings.Contains(bio, strings.ToLower(kw)) {
			return Decision{Reason: "contains excluded keywords"}, true
		}
	}

	return Decision{}, false
}

// checkAccountAge fails open on unparsable creation timestamps. A garbled
// profile should never break a whole run.
func (e *Engine) checkAccountAge(rec *enrich.AccountRecord) (Decision, bool) {
	if e.cfg.MinAccountAgeDays <= 0 {
		return Decision{}, false
	}

	created, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		e.logger.WarnWithFields("unparsable creation timestamp, skipping age filter", map[string]interface{}{
			"login":      rec.Login,
			"created_at": rec.CreatedAt,
		})
		return Decision{}, false
	}

	ageDays := int(e.now().Sub(created).Hours() / 24)
	if ageDays < e.cfg.MinAccountAgeDays {
		return Decision{Reason: fmt.Sprintf("account too new: %d days", ageDays)}, true
	}
	return Decision{}, false
}

func displayLanguage(lang string) string {
	if lang == "" {
		return "unknown"
	}
	return lang
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		if s == "" {
			continue
		}
		set[strings.ToLower(s)] = struct{}{}
	}
	return set
}
