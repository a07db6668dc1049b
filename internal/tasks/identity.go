// Package tasks extracts task lists from free-form model output and
// reconciles them against existing tasks. The generator never supplies
// stable identifiers, so identity is derived from normalized task text and
// wording drift is absorbed by fuzzy matching.
package tasks

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

var (
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, strips punctuation and collapses whitespace so that
// semantically identical task text compares equal.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWord.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ID derives a deterministic task identifier from task text. Re-parsing the
// same wording in a later turn yields the same ID, which is what makes
// update-in-place reconciliation correct without generator-supplied IDs.
func ID(text string) string {
	norm := Normalize(text)
	if norm == "" {
		// Symbol-only text normalizes away entirely; hash the raw text so
		// distinct tasks never collapse onto one identity.
		norm = strings.TrimSpace(text)
	}
	h := fnv.New64a()
	h.Write([]byte(norm))
	return fmt.Sprintf("task-%016x", h.Sum64())
}
