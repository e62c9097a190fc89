package github

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	errs "ghsync/pkg/errors"
)

var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// hasNextPage reports whether the Link header advertises another page.
func hasNextPage(header http.Header) bool {
	return nextLinkRe.MatchString(header.Get("Link"))
}

// paginateUsers walks a paginated user-list endpoint at maxPerPage per
// request. It stops when a page comes back empty or the Link header no
// longer advertises a next page. maxPages of zero means unbounded; a
// positive cap that truncates the walk is logged, not an error.
func (c *Client) paginateUsers(ctx context.Context, endpoint string, maxPages int) ([]User, error) {
	var all []User

	for page := 1; ; page++ {
		if maxPages > 0 && page > maxPages {
			c.logger.WarnWithFields("page cap reached, result truncated", map[string]interface{}{
				"endpoint":  endpoint,
				"max_pages": maxPages,
				"collected": len(all),
			})
			break
		}

		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(maxPerPage))

		resp, err := c.Execute(ctx, http.MethodGet, endpoint, params, nil)
		if err != nil {
			return all, err
		}

		var batch []User
		if err := decodeBody(resp, &batch); err != nil {
			return all, errs.Wrap(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse user page", err)
		}

		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)

		if !hasNextPage(resp.Header) {
			break
		}
	}

	return all, nil
}
