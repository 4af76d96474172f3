package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// seenSet deduplicates listings by canonical product link. Marketplaces
// repeat sponsored items across result pages, and the same product can
// surface for both the simplified and the raw query.
type seenSet struct {
	mu    sync.Mutex
	links map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{links: make(map[string]struct{})}
}

// add records the link and reports whether it was new. Listings without a
// product link are always considered new; there is nothing to key on.
func (s *seenSet) add(link string) bool {
	key := canonicalLink(link)
	if key == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.links[key]; dup {
		return false
	}
	s.links[key] = struct{}{}
	return true
}

// canonicalLink lowercases scheme and host and drops fragments and tracking
// query strings so that cosmetically different URLs of one product collide.
func canonicalLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Hostname()) + path
}
