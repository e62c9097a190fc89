package filter

import (
	"testing"
	"time"

	"ghsync/pkg/config"
	"ghsync/pkg/enrich"
	"ghsync/pkg/logger"
)

func baseConfig() config.FilterConfig {
	return config.FilterConfig{Enabled: true}
}

func record(login string) *enrich.AccountRecord {
	return &enrich.AccountRecord{Login: login}
}

func TestDisabledEngineAcceptsEverything(t *testing.T) {
	cfg := baseConfig()
	cfg.Enabled = false
	cfg.Blacklist = []string{"spam"}
	e := New(cfg, WorkflowFollowBack, logger.NewTestLogger())

	d := e.Decide(record("spam"))
	if !d.Accept || d.Reason != "filtering disabled" {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestWhitelistShortCircuits(t *testing.T) {
	cfg := baseConfig()
	cfg.Whitelist = []string{"Friend"}
	cfg.Blacklist = []string{"friend"}
	cfg.MinRepos = 100

	// A pathological whitelist+blacklist config always resolves to the
	// whitelist outcome: accept in a follow-back run, protect in an
	// unfollow run.
	followBack := New(cfg, WorkflowFollowBack, logger.NewTestLogger())
	if d := followBack.Decide(record("friend")); !d.Accept || d.Reason != "whitelisted" {
		t.Errorf("follow-back: whitelist must win over everything, got %+v", d)
	}

	unfollow := New(cfg, WorkflowUnfollow, logger.NewTestLogger())
	if d := unfollow.Decide(record("friend")); d.Accept || d.Reason != "whitelisted" {
		t.Errorf("unfollow: whitelist must protect the account, got %+v", d)
	}
}

func TestBlacklistPolarityPerWorkflow(t *testing.T) {
	cfg := baseConfig()
	cfg.Blacklist = []string{"spam"}

	followBack := New(cfg, WorkflowFollowBack, logger.NewTestLogger())
	if d := followBack.Decide(record("spam")); d.Accept || d.Reason != "blacklisted" {
		t.Errorf("follow-back must reject blacklisted, got %+v", d)
	}

	unfollow := New(cfg, WorkflowUnfollow, logger.NewTestLogger())
	if d := unfollow.Decide(record("spam")); !d.Accept || d.Reason != "blacklisted" {
		t.Errorf("unfollow must force-accept blacklisted, got %+v", d)
	}
}

func TestLanguageFilter(t *testing.T) {
	cfg := baseConfig()
	cfg.Languages = []string{"Go", "Rust"}
	e := New(cfg, WorkflowFollowBack, logger.NewTestLogger())

	rec := record("dev")
	rec.TopLanguage = "go"
	if d := e.Decide(rec); !d.Accept {
		t.Errorf("language match should pass, got %+v", d)
	}

	rec.TopLanguage = "Java"
	if d := e.Decide(rec); d.Accept || d.Reason != "language mismatch: Java" {
		t.Errorf("unexpected decision: %+v", d)
	}

	rec.TopLanguage = ""
	if d := e.Decide(rec); d.Accept || d.Reason != "language mismatch: unknown" {
		t.Errorf("unknown language must reject when an allow-set exists, got %+v", d)
	}
}

func TestNumericRangeFilters(t *testing.T) {
	cfg := baseConfig()
	cfg.MinRepos = 5
	cfg.MaxFollowers = 1000
	cfg.MinFollowing = 10
	e := New(cfg, WorkflowFollowBack, logger.NewTestLogger())

	tests := []struct {
		name   string
		mutate func(*enrich.AccountRecord)
		reason string
	}{
		{"too_few_repos", func(r *enrich.AccountRecord) {
			r.PublicRepos = 2
			r.Followers = 50
			r.Following = 20
		}, "repo count: 2"},
		{"too_many_followers", func(r *enrich.AccountRecord) {
			r.PublicRepos = 10
			r.Followers = 5000
			r.Following = 20
		}, "follower count: 5000"},
		{"too_few_following", func(r *enrich.AccountRecord) {
			r.PublicRepos = 10
			r.Followers = 50
			r.Following = 1
		}, "following count: 1"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := record("dev")
			test.mutate(rec)
			d := e.Decide(rec)
			if d.Accept || d.Reason != test.reason {
				t.Errorf("expected rejection %q, got %+v", test.reason, d)
			}
		})
	}
}

func TestKeywordFilters(t *testing.T) {
	cfg := baseConfig()
	cfg.RequiredKeywords = []string{"golang", "kubernetes"}
	cfg.ExcludedKeywords = []string{"crypto"}
	e := New(cfg, WorkflowFollowBack, logger.NewTestLogger())

	rec := record("dev")
	rec.Bio = "I write Golang services"
	if d := e.Decide(rec); !d.Accept {
		t.Errorf("case-insensitive required keyword should match, got %+v", d)
	}

	rec.Bio = "frontend only"
	if d := e.Decide(rec); d.Accept || d.Reason != "missing required keywords" {
		t.Errorf("unexpected decision: %+v", d)
	}

	rec.Bio = "golang and Crypto trading"
	if d := e.Decide(rec); d.Accept || d.Reason != "contains excluded keywords" {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestAccountAgeFilter(t *testing.T) {
	cfg := baseConfig()
	cfg.MinAccountAgeDays = 365
	e := New(cfg, WorkflowFollowBack, logger.NewTestLogger())
	e.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	rec := record("newbie")
	rec.CreatedAt = "2024-05-01T00:00:00Z"
	if d := e.Decide(rec); d.Accept || d.Reason != "account too new: 31 days" {
		t.Errorf("unexpected decision: %+v", d)
	}

	rec = record("veteran")
	rec.CreatedAt = "2015-01-01T00:00:00Z"
	if d := e.Decide(rec); !d.Accept {
		t.Errorf("old account should pass, got %+v", d)
	}
}

func TestAccountAgeFailsOpen(t *testing.T) {
	cfg := baseConfig()
	cfg.MinAccountAgeDays = 365
	log := logger.NewTestLogger()
	e := New(cfg, WorkflowFollowBack, log)

	rec := record("weird")
	rec.CreatedAt = "not a timestamp"
	d := e.Decide(rec)
	if !d.Accept || d.Reason != "all filters passed" {
		t.Errorf("unparsable timestamp must fail open, got %+v", d)
	}
	if !log.HasMessage("unparsable creation timestamp") {
		t.Error("expected a warning for the unparsable timestamp")
	}
}

func TestAcceptReason(t *testing.T) {
	e := New(baseConfig(), WorkflowFollowBack, logger.NewTestLogger())
	if d := e.Decide(record("anyone")); !d.Accept || d.Reason != "all filters passed" {
		t.Errorf("unexpected decision: %+v", d)
	}
}
