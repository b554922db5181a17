package imagecache

import (
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind is the shape of an image URI, which decides how it is validated.
type Kind int

const (
	KindInvalid Kind = iota
	KindLocal
	KindTrusted
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindTrusted:
		return "trusted"
	case KindRemote:
		return "remote"
	default:
		return "invalid"
	}
}

const (
	fileScheme        = "file://"
	minLocalURILength = 10
)

// duplicatedTempMarkers show up when an image picker path was joined onto
// itself; such files never exist.
var duplicatedTempMarkers = []string{
	"/tmp/tmp/",
	"ImagePicker/ImagePicker",
	"/cache/cache/",
	"/Caches/Caches/",
}

// Classify returns the kind of uri given the trusted host patterns.
func Classify(uri string, trusted []string) Kind {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return KindInvalid
	}

	if strings.HasPrefix(strings.ToLower(uri), fileScheme) {
		return KindLocal
	}

	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return KindInvalid
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return KindInvalid
	}

	if IsTrustedHost(u.Hostname(), trusted) {
		return KindTrusted
	}
	return KindRemote
}

// IsTrustedHost reports whether host matches one of the patterns. Patterns
// are doublestar globs matched case-insensitively ("*.unsplash.com").
func IsTrustedHost(host string, patterns []string) bool {
	host = strings.ToLower(host)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p == host {
			return true
		}
		if ok, err := doublestar.Match(p, host); err == nil && ok {
			return true
		}
	}
	return false
}

// ValidLocalURI is a sanity check of a file URI's shape. It does not check
// that the file exists.
func ValidLocalURI(uri string) bool {
	if !strings.HasPrefix(strings.ToLower(uri), fileScheme) || len(uri) < minLocalURILength {
		return false
	}
	if strings.Contains(uri, "undefined") {
		return false
	}
	for _, seg := range strings.Split(uri[len(fileScheme):], "/") {
		if seg == ".." {
			return false
		}
	}
	for _, marker := range duplicatedTempMarkers {
		if strings.Contains(uri, marker) {
			return false
		}
	}
	return true
}

// SourceFor builds the renderer descriptor for uri. Local files load first
// and stay in memory; trusted hosts serve immutable content.
func SourceFor(uri string, trusted []string) Source {
	switch Classify(uri, trusted) {
	case KindLocal:
		return Source{URI: uri, Priority: PriorityHigh, Cache: CacheMemory}
	case KindTrusted:
		return Source{URI: uri, Priority: PriorityNormal, Cache: CacheImmutable}
	default:
		return Source{URI: uri, Priority: PriorityLow, Cache: CacheWeb}
	}
}
