package github

import "fmt"

// DefaultBaseURL is the public GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com"

// topLanguageURLTemplate is the secondary-stat source used for the fast
// language lookup. The response is an SVG card, not API JSON; the host has
// no quota headers.
const topLanguageURLTemplate = "https://github-readme-stats.vercel.app/api/top-langs/?username=%s&layout=compact&langs_count=1&hide_border=true"

// maxPerPage is the API ceiling for collection page sizes.
const maxPerPage = 100

func authenticatedUserEndpoint() string {
	return "/user"
}

func profileEndpoint(login string) string {
	return fmt.Sprintf("/users/%s", login)
}

func followersEndpoint(login string) string {
	return fmt.Sprintf("/users/%s/followers", login)
}

func followingEndpoint(login string) string {
	return fmt.Sprintf("/users/%s/following", login)
}

func repositoriesEndpoint(login string) string {
	return fmt.Sprintf("/users/%s/repos", login)
}

func relationshipEndpoint(login string) string {
	return fmt.Sprintf("/user/following/%s", login)
}

func topLanguageURL(login string) string {
	return fmt.Sprintf(topLanguageURLTemplate, login)
}
