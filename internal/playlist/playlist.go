// Package playlist turns a cycle's results into the published artifact.
package playlist

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/livecast-service/internal/entity"
)

// Build keeps the successful outcomes in descriptor order. It has no side
// effects: the same input always yields the same snapshot.
func Build(cycleID, groupTitle string, results entity.CrawlResultSet, generatedAt time.Time) *entity.PlaylistSnapshot {
	s := &entity.PlaylistSnapshot{
		CycleID:     cycleID,
		GroupTitle:  groupTitle,
		GeneratedAt: generatedAt,
		Entries:     make([]entity.PlaylistEntry, 0, len(results)),
	}
	for _, o := range results {
		if !o.OK() {
			s.FailureCount++
			continue
		}
		s.SuccessCount++
		s.Entries = append(s.Entries, entity.PlaylistEntry{
			Name: o.Descriptor.Name,
			URL:  o.StreamURL,
		})
	}
	return s
}

// RenderText writes the "name,url" line format. A group title, when set, is
// emitted first as a "title,#genre#" line.
func RenderText(s *entity.PlaylistSnapshot) string {
	var b strings.Builder
	if s.GroupTitle != "" {
		fmt.Fprintf(&b, "%s,#genre#\n", s.GroupTitle)
	}
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "%s,%s\n", e.Name, e.URL)
	}
	return b.String()
}

// RenderM3U writes an extended M3U playlist.
func RenderM3U(s *entity.PlaylistSnapshot) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, e := range s.Entries {
		if s.GroupTitle != "" {
			fmt.Fprintf(&b, "#EXTINF:-1 tvg-name=\"%s\" group-title=\"%s\",%s\n", attr(e.Name), attr(s.GroupTitle), e.Name)
		} else {
			fmt.Fprintf(&b, "#EXTINF:-1 tvg-name=\"%s\",%s\n", attr(e.Name), e.Name)
		}
		b.WriteString(e.URL)
		b.WriteByte('\n')
	}
	return b.String()
}

// attr makes v safe inside a double-quoted #EXTINF attribute. M3U readers do
// not unescape, so quotes are replaced rather than escaped.
func attr(v string) string {
	return strings.ReplaceAll(v, `"`, "'")
}
