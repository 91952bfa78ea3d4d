package app

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

/********** alias registry (single source of truth) **********/

// The provider is inconsistent about field names across endpoints and API
// vintages; resolve each logical field through an alias list, first
// non-empty wins.
var rawReviewAliases = map[string][]string{
	"id":          {"review_id", "reviewId", "id"},
	"author_name": {"author_name", "authorName", "author", "name"},
	"author_url":  {"author_url", "authorUrl", "author.url", "author_profile_url"},
	"text":        {"text", "review_text", "snippet", "comment", "content"},
	"time":        {"time", "timestamp", "created_at"},
	"rating":      {"rating", "stars", "score"},
	"lang":        {"language", "lang", "original_language"},
}

// identityTextPrefixLen is the fixed review-text prefix length used in the
// composite fallback identity.
const identityTextPrefixLen = 30

var contribRe = regexp.MustCompile(`contrib/(\d+)`)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, key string) string {
	for _, p := range rawReviewAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// firstInt64Flexible: int64 from several paths (float64/int/string).
func firstInt64Flexible(m map[string]any, key string) (int64, bool) {
	for _, p := range rawReviewAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			return int64(v), true
		case int:
			return int64(v), true
		case int64:
			return v, true
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// firstFloatFlexible: float64 from several paths (float64/int/string like "4,0").
func firstFloatFlexible(m map[string]any, key string) *float64 {
	for _, p := range rawReviewAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

/********** mapping **********/

// externalIdentity computes the stable dedup key for a raw provider review.
// A provider-native review ID wins; without one, the key is composed from
// the author's contributor ID (taken from the profile URL), the provider
// timestamp, and a fixed-length text prefix. Identical input always yields
// the identical key.
func externalIdentity(raw map[string]any) string {
	if id := firstNonEmptyAlias(raw, "id"); id != "" {
		return id
	}

	authorID := "unknown"
	if m := contribRe.FindStringSubmatch(firstNonEmptyAlias(raw, "author_url")); m != nil {
		authorID = m[1]
	}

	secs, _ := firstInt64Flexible(raw, "time") // malformed/absent → 0, still deterministic

	text := firstNonEmptyAlias(raw, "text")
	if r := []rune(text); len(r) > identityTextPrefixLen {
		text = string(r[:identityTextPrefixLen])
	}

	return fmt.Sprintf("%s_%d_%s", authorID, secs, text)
}

// externalReviewTime converts the provider timestamp (unix seconds) to a
// time.Time. Malformed or missing timestamps map to the zero time, which
// downstream treats as "unknown": no skip-by-timestamp shortcut, stored as
// created-now.
func externalReviewTime(raw map[string]any) time.Time {
	secs, ok := firstInt64Flexible(raw, "time")
	if !ok || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

// mapExternalReview builds the normalized Review for a raw provider payload.
// Empty text is kept (degenerate but valid); analysis deals with it later.
func mapExternalReview(businessID string, raw map[string]any) domain.Review {
	identity := externalIdentity(raw)
	author := firstNonEmptyAlias(raw, "author_name")
	if author == "" {
		author = "Anonymous"
	}
	return domain.Review{
		BusinessID: businessID,
		AuthorName: &author,
		Text:       firstNonEmptyAlias(raw, "text"),
		IsAnalyzed: false,
		Source:     domain.SourceGoogle,
		ExternalID: &identity,
		Rating:     firstFloatFlexible(raw, "rating"),
		Lang:       ptrStr(firstNonEmptyAlias(raw, "lang")),
		CreatedAt:  externalReviewTime(raw),
	}
}
