package cache

import (
	"fmt"
	"regexp"
	"strings"
)

// tagMarker separates a key from an embedded tag in keys built by TaggedKey.
const tagMarker = ":tag:"

// Invalidator is the part of a cache the invalidation helpers operate on.
// Helpers only look at key strings and remove matches one by one through Delete.
type Invalidator interface {
	Keys() []string
	Delete(key string) bool
}

// TagInvalidator is an Invalidator that also indexes entry tags.
type TagInvalidator interface {
	Invalidator
	KeysByTags(tags ...string) []string
}

// InvalidateByPattern deletes every key matching the regular expression pattern
// and returns the number of deleted entries.
func InvalidateByPattern(c Invalidator, pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
	}
	return InvalidateByRegexp(c, re), nil
}

// InvalidateByRegexp deletes every key matched by re.
func InvalidateByRegexp(c Invalidator, re *regexp.Regexp) int {
	return deleteMatching(c, re.MatchString)
}

// InvalidateByPrefix deletes every key starting with prefix.
func InvalidateByPrefix(c Invalidator, prefix string) int {
	return deleteMatching(c, func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// InvalidateByTags deletes every entry tagged with any of tags, either through
// entry metadata (SetWithTags) or through a ":tag:<tag>" marker in the key (TaggedKey).
func InvalidateByTags(c TagInvalidator, tags ...string) int {
	if len(tags) == 0 {
		return 0
	}

	targets := make(map[string]struct{})
	for _, key := range c.KeysByTags(tags...) {
		targets[key] = struct{}{}
	}
	for _, key := range c.Keys() {
		if hasTagMarker(key, tags) {
			targets[key] = struct{}{}
		}
	}

	removed := 0
	for key := range targets {
		if c.Delete(key) {
			removed++
		}
	}
	return removed
}

// TaggedKey builds a composite key embedding tags, e.g. "invoice:42:tag:billing".
// Entries stored under such keys are matched by InvalidateByTags and must be
// read back with the same composite key.
func TaggedKey(key string, tags ...string) string {
	var b strings.Builder
	b.WriteString(key)
	for _, t := range tags {
		b.WriteString(tagMarker)
		b.WriteString(t)
	}
	return b.String()
}

func hasTagMarker(key string, tags []string) bool {
	for _, t := range tags {
		marker := tagMarker + t
		// The marker must end at a tag boundary so "billing" does not match "billing-eu".
		for rest := key; ; {
			i := strings.Index(rest, marker)
			if i < 0 {
				break
			}
			rest = rest[i+len(marker):]
			if rest == "" || strings.HasPrefix(rest, tagMarker) {
				return true
			}
		}
	}
	return false
}

func deleteMatching(c Invalidator, match func(string) bool) int {
	removed := 0
	for _, key := range c.Keys() {
		if match(key) && c.Delete(key) {
			removed++
		}
	}
	return removed
}
