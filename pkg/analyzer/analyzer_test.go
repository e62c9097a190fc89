package analyzer

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ghsync/pkg/github"
	"ghsync/pkg/logger"
)

type fakeSource struct {
	followers []github.User
	following []github.User
	byTarget  map[string][]github.User
	calls     int
	err       error
}

func (f *fakeSource) ListFollowers(ctx context.Context, login string, maxPages int) ([]github.User, error) {
	f.calls++
	if f.byTarget != nil {
		return f.byTarget[login], f.err
	}
	return f.followers, f.err
}

func (f *fakeSource) ListFollowing(ctx context.Context, login string, maxPages int) ([]github.User, error) {
	f.calls++
	return f.following, f.err
}

func users(logins ...string) []github.User {
	out := make([]github.User, len(logins))
	for i, l := range logins {
		out[i] = github.User{Login: l, HTMLURL: "https://github.com/" + l}
	}
	return out
}

func logins(us []github.User) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.Login
	}
	return out
}

func TestNonReciprocal(t *testing.T) {
	src := &fakeSource{
		followers: users("b"),
		following: users("a", "b", "c"),
	}
	a := New(src, "me", 0, logger.NewTestLogger())

	got, err := a.NonReciprocal(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, logins(got))
	}
	for i, login := range want {
		if got[i].Login != login {
			t.Errorf("position %d: expected %s, got %s", i, login, got[i].Login)
		}
	}
}

func TestNonReciprocalCaseInsensitive(t *testing.T) {
	src := &fakeSource{
		followers: users("User1", "OTHER"),
		following: users("user1", "other", "third"),
	}
	a := New(src, "me", 0, logger.NewTestLogger())

	got, err := a.NonReciprocal(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 || got[0].Login != "third" {
		t.Errorf("expected [third], got %v", logins(got))
	}
}

func TestFollowBackCandidates(t *testing.T) {
	src := &fakeSource{
		followers: users("a", "b", "c"),
		following: users("B"),
	}
	a := New(src, "me", 0, logger.NewTestLogger())

	got, err := a.FollowBackCandidates(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "c"}
	if len(got) != 2 || got[0].Login != want[0] || got[1].Login != want[1] {
		t.Errorf("expected %v, got %v", want, logins(got))
	}
}

func TestNonReciprocalDeduplicates(t *testing.T) {
	// A list that mutates mid-pagination can repeat a login across pages.
	src := &fakeSource{
		followers: users("b"),
		following: users("a", "A", "c", "a"),
	}
	a := New(src, "me", 0, logger.NewTestLogger())

	got, err := a.NonReciprocal(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 || got[0].Login != "a" || got[1].Login != "c" {
		t.Errorf("expected each candidate once, got %v", logins(got))
	}
}

func TestFollowBackCandidatesDeduplicate(t *testing.T) {
	src := &fakeSource{
		followers: users("x", "X", "y"),
		following: users("y"),
	}
	a := New(src, "me", 0, logger.NewTestLogger())

	got, err := a.FollowBackCandidates(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 || got[0].Login != "x" {
		t.Errorf("expected [x], got %v", logins(got))
	}
}

func TestTargetFollowers(t *testing.T) {
	src := &fakeSource{
		byTarget: map[string][]github.User{
			"acme":  users("a", "b"),
			"other": users("B", "c"),
		},
	}
	a := New(src, "me", 0, logger.NewTestLogger())

	got, err := a.TargetFollowers(context.Background(), []string{"acme", "other"})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, logins(got))
	}
	for i, login := range want {
		if got[i].Login != login {
			t.Errorf("position %d: expected %s, got %s", i, login, got[i].Login)
		}
	}
}

func TestTargetFollowersErrorNamesTarget(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	a := New(src, "me", 0, logger.NewTestLogger())

	_, err := a.TargetFollowers(context.Background(), []string{"acme"})
	if err == nil || !strings.Contains(err.Error(), "acme") {
		t.Errorf("expected the failing target in the error, got %v", err)
	}
}

func TestListsAreCachedUntilInvalidate(t *testing.T) {
	src := &fakeSource{
		followers: users("a"),
		following: users("a", "b"),
	}
	a := New(src, "me", 0, logger.NewTestLogger())
	ctx := context.Background()

	if _, err := a.NonReciprocal(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := a.FollowBackCandidates(ctx); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Errorf("expected 2 fetches for both queries, got %d", src.calls)
	}

	a.Invalidate()
	if _, err := a.NonReciprocal(ctx); err != nil {
		t.Fatal(err)
	}
	if src.calls != 4 {
		t.Errorf("expected refetch after Invalidate, got %d calls", src.calls)
	}
}

func TestStats(t *testing.T) {
	src := &fakeSource{
		followers: users("a", "b", "x", "y"),
		following: users("a", "b"),
	}
	a := New(src, "me", 0, logger.NewTestLogger())

	stats, err := a.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if stats.Followers != 4 || stats.Following != 2 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.Mutual != 2 || stats.NonReciprocal != 0 || stats.FollowBack != 2 {
		t.Errorf("unexpected diff counts: %+v", stats)
	}
	if stats.Ratio != 2.0 {
		t.Errorf("expected ratio 2.0, got %f", stats.Ratio)
	}
}

func TestLoadErrorPropagates(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	a := New(src, "me", 0, logger.NewTestLogger())

	if _, err := a.NonReciprocal(context.Background()); err == nil {
		t.Error("expected the fetch error to surface")
	}
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "export.csv")

	if err := ExportCSV(path, users("a", "b")); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "login" || rows[1][0] != "a" || rows[2][1] != "https://github.com/b" {
		t.Errorf("unexpected CSV contents: %v", rows)
	}
}
