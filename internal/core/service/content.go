package service

import (
	"strings"
	"unicode/utf8"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

const maxTagLen = 20

// cleanTags trims tags, drops empties and rejects overlong ones.
func cleanTags(tags []string, verr *domain.ValidationError) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > maxTagLen {
			verr.Add("tags", "tags must be at most 20 characters")
			continue
		}
		out = append(out, t)
	}
	return out
}

func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// viewEvent builds the event recorded when a resource is read. An empty
// viewer key means the view is not attributable and is skipped.
func viewEvent(kind domain.ResourceKind, id, viewerKey string) (domain.ViewEvent, bool) {
	if viewerKey == "" {
		return domain.ViewEvent{}, false
	}
	return domain.ViewEvent{Kind: kind, ResourceID: id, ViewerKey: viewerKey}, true
}
