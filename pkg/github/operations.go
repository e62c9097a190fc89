package github

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	errs "ghsync/pkg/errors"
)

// AuthenticatedUser returns the profile of the token's owner.
func (c *Client) AuthenticatedUser(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.GetJSON(ctx, authenticatedUserEndpoint(), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListFollowers returns every account following login. Exhausted retries
// surface as an empty slice so a flaky page does not abort a whole run;
// the error is logged at the call site via the returned error.
func (c *Client) ListFollowers(ctx context.Context, login string, maxPages int) ([]User, error) {
	users, err := c.paginateUsers(ctx, followersEndpoint(login), maxPages)
	if err != nil {
		c.logger.ErrorWithFields("follower listing failed", map[string]interface{}{
			"login": login,
			"error": err.Error(),
		})
		return []User{}, err
	}
	return users, nil
}

// ListFollowing returns every account login follows, in API order.
func (c *Client) ListFollowing(ctx context.Context, login string, maxPages int) ([]User, error) {
	users, err := c.paginateUsers(ctx, followingEndpoint(login), maxPages)
	if err != nil {
		c.logger.ErrorWithFields("following listing failed", map[string]interface{}{
			"login": login,
			"error": err.Error(),
		})
		return []User{}, err
	}
	return users, nil
}

// GetProfile fetches the full profile for login.
func (c *Client) GetProfile(ctx context.Context, login string) (*Profile, error) {
	var profile Profile
	if err := c.GetJSON(ctx, profileEndpoint(login), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetRepositories fetches up to limit of login's most recently pushed
// repositories. A limit of zero or above the page ceiling is clamped to
// one full page.
func (c *Client) GetRepositories(ctx context.Context, login string, limit int) ([]Repository, error) {
	if limit <= 0 || limit > maxPerPage {
		limit = maxPerPage
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("sort", "pushed")

	var repos []Repository
	if err := c.GetJSON(ctx, repositoriesEndpoint(login), params, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// GetTopLanguage resolves login's dominant language from the rendered
// language card. The card marks a single-language query with a 100.00%
// share; anything else means no signal and returns empty without error.
func (c *Client) GetTopLanguage(ctx context.Context, login string) (string, error) {
	resp, err := c.Execute(ctx, http.MethodGet, c.cardURL(login), nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeTransport, resp.StatusCode, "failed to read language card", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		idx := strings.Index(line, "100.00%")
		if idx < 0 {
			continue
		}
		return sanitizeCardText(line[:idx]), nil
	}
	return "", nil
}

// sanitizeCardText strips SVG markup and quoting around a language name.
func sanitizeCardText(s string) string {
	if gt := strings.LastIndex(s, ">"); gt >= 0 {
		s = s[gt+1:]
	}
	s = strings.Trim(s, " \t\"'")
	return strings.TrimSpace(s)
}

// Follow creates a following relationship with login. The API answers a
// successful write with 204.
func (c *Client) Follow(ctx context.Context, login string) error {
	resp, err := c.Execute(ctx, http.MethodPut, relationshipEndpoint(login), nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return errs.New(errs.ErrorTypeHTTP, resp.StatusCode, "follow did not return 204")
	}
	return nil
}

// Unfollow removes the following relationship with login.
func (c *Client) Unfollow(ctx context.Context, login string) error {
	resp, err := c.Execute(ctx, http.MethodDelete, relationshipEndpoint(login), nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return errs.New(errs.ErrorTypeHTTP, resp.StatusCode, "unfollow did not return 204")
	}
	return nil
}

// IsFollowing reports whether the authenticated user follows login.
// The relationship endpoint answers 204 for yes and 404 for no.
func (c *Client) IsFollowing(ctx context.Context, login string) (bool, error) {
	resp, err := c.Execute(ctx, http.MethodGet, relationshipEndpoint(login), nil, nil)
	if err != nil {
		var apiErr *errs.Error
		if stderrors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeNotFound {
			return false, nil
		}
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusNoContent, nil
}
