package event

import (
	"regexp"
	"strings"
)

const meetupBaseURL = "https://www.meetup.com/"

var groupSlugPattern = regexp.MustCompile(`meetup\.com/([^/?#]+)`)

// Group is a configured scrape target.
type Group struct {
	URL      string `mapstructure:"url" json:"url"`
	SalesRep string `mapstructure:"sales_rep" json:"sales_rep"`
}

// NormalizeGroupURL converts the accepted spellings of a group reference
// ("meetup.com/go-nyc", "go-nyc", "https://www.meetup.com/go-nyc/events?x=1")
// to the canonical "https://www.meetup.com/<slug>/" form.
func NormalizeGroupURL(raw string) string {
	u := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(u, "meetup.com"):
		u = "https://www." + u
	case !strings.HasPrefix(u, "http"):
		u = meetupBaseURL + strings.TrimLeft(u, "/")
	}

	if !strings.HasSuffix(u, "/") {
		u += "/"
	}

	if m := groupSlugPattern.FindStringSubmatch(u); m != nil {
		return meetupBaseURL + m[1] + "/"
	}
	return u
}

// EventsPageURL returns the listing page for the group.
func (g Group) EventsPageURL() string {
	return NormalizeGroupURL(g.URL) + "events/"
}

// CanonicalURL returns the normalized group URL without the trailing slash,
// the form stored in Event.GroupURL.
func (g Group) CanonicalURL() string {
	return strings.TrimSuffix(NormalizeGroupURL(g.URL), "/")
}

// Slug returns the group's URL name, e.g. "go-nyc".
func (g Group) Slug() string {
	if m := groupSlugPattern.FindStringSubmatch(NormalizeGroupURL(g.URL)); m != nil {
		return m[1]
	}
	return ""
}

// DedupeGroups removes groups whose normalized URL was already seen, keeping
// the first entry. It returns the unique groups and the number removed.
func DedupeGroups(groups []Group) ([]Group, int) {
	seen := make(map[string]bool, len(groups))
	unique := make([]Group, 0, len(groups))
	for _, g := range groups {
		key := NormalizeGroupURL(g.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, g)
	}
	return unique, len(groups) - len(unique)
}
