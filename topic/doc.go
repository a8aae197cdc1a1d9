// Package topic provides hierarchical event name types and wildcard pattern
// matching for the pulse event bus.
//
// Topics use dot notation ("user.login", "order.payment.captured"). Patterns
// may replace any segment with "*", which matches exactly one segment at that
// position. Matching is strict: a pattern never matches a topic with a
// different number of segments, so "user.*" matches "user.login" but not
// "user.login.success".
//
// The Matcher indexes patterns in a trie so that resolving the patterns
// matching an event name does not require scanning every registered pattern.
package topic
