package topic

import "strings"

// Topic represents a hierarchical event name using dot notation.
// Examples: "user.login", "order.payment.captured", "cache.evicted"
type Topic string

// Wildcard and separator constants for pattern matching.
const (
	// Wildcard matches exactly one segment.
	Wildcard = "*"

	// Separator is the character used to separate topic segments.
	Separator = "."
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// SegmentCount returns the number of segments in the topic.
func (t Topic) SegmentCount() int {
	if t == "" {
		return 0
	}
	return strings.Count(string(t), Separator) + 1
}

// IsPattern returns true if the topic contains a wildcard segment.
func (t Topic) IsPattern() bool {
	for _, seg := range t.Segments() {
		if seg == Wildcard {
			return true
		}
	}
	return false
}

// IsValid returns true if the topic is well formed.
// A valid topic:
//   - Is not empty
//   - Does not start or end with a separator
//   - Does not contain empty segments
func (t Topic) IsValid() bool {
	s := string(t)
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, Separator) || strings.HasSuffix(s, Separator) {
		return false
	}
	return !strings.Contains(s, Separator+Separator)
}

// Matches returns true if this topic matches the given pattern.
// Matching is strict and non-recursive: the pattern must have the same
// number of segments as the topic, and each pattern segment matches its
// positional topic segment if it is the wildcard "*" or equal to it.
// There is no multi-segment wildcard; "user.login.success" does NOT match
// "user.*".
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(t.Segments(), pattern.Segments())
}

// matchSegments performs positional segment matching.
func matchSegments(topic, pattern []string) bool {
	if len(topic) != len(pattern) {
		return false
	}
	for i, seg := range pattern {
		if seg != Wildcard && seg != topic[i] {
			return false
		}
	}
	return len(topic) > 0
}

// Join joins multiple segments into a topic.
func Join(segments ...string) Topic {
	return Topic(strings.Join(segments, Separator))
}

// Split splits a topic string into segments without creating a Topic first.
func Split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, Separator)
}
