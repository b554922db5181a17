// Package placeholder rewrites random placeholder image URLs into stable,
// seeded ones so the same recipe shows the same picture on every render.
package placeholder

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultHost serves the placeholder images.
const DefaultHost = "picsum.photos"

const (
	seedSegment = "seed"
	idSegment   = "id"
	randomParam = "random"
)

// Seed returns a deterministic base-36 seed for s.
func Seed(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 36)
}

// IsRandom reports whether u points at host and is neither seeded nor pinned
// to a fixed image id.
func IsRandom(u, host string) bool {
	parsed, ok := parse(u, host)
	if !ok {
		return false
	}
	segs := segments(parsed.Path)
	if len(segs) == 0 {
		return false
	}
	return segs[0] != seedSegment && segs[0] != idSegment
}

// Seeded converts a random placeholder URL into its seeded form. The second
// result is false when u is not a random placeholder and nothing changed.
//
//	https://picsum.photos/400/300?random=7 -> https://picsum.photos/seed/<seed>/400/300
func Seeded(u, host string) (string, bool) {
	if !IsRandom(u, host) {
		return u, false
	}
	parsed, _ := parse(u, host)

	q := parsed.Query()
	q.Del(randomParam)

	out := url.URL{
		Scheme:   "https",
		Host:     parsed.Host,
		Path:     "/" + strings.Join(append([]string{seedSegment, Seed(u)}, segments(parsed.Path)...), "/"),
		RawQuery: q.Encode(),
	}
	return out.String(), true
}

// ForRecipe returns a seeded placeholder for a recipe id.
func ForRecipe(id string, width, height int, host string) string {
	if host == "" {
		host = DefaultHost
	}
	return fmt.Sprintf("https://%s/%s/%s/%d/%d", host, seedSegment, Seed(id), width, height)
}

func parse(u, host string) (*url.URL, bool) {
	if host == "" {
		host = DefaultHost
	}
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return nil, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, false
	}
	return parsed, strings.EqualFold(parsed.Hostname(), host)
}

func segments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
