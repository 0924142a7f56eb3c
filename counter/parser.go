package counter

import (
	"regexp"
	"strings"
)

// CDN access log field positions, zero based, in the whitespace separated
// Fastly log format
const (
	pathFieldIndex   = 10
	statusFieldIndex = 11
	minFieldCount    = 12
)

// gemDownloadPattern matches the terminal path segment of a gem download
// request; the capture is the version full name without the .gem extension
var gemDownloadPattern = regexp.MustCompile(`/gems/([^/\s]+)\.gem$`)

func isDownloadStatus(status string) bool {
	return status == "200" || status == "304"
}

// ParseDownloads consumes the line iterator and accumulates download counts
// keyed by version full name. Only requests served with status 200 or 304
// whose path ends in /gems/<full name>.gem count; every other line,
// malformed ones included, is skipped without failing the batch. The only
// error returned is a read error from the underlying stream.
func ParseDownloads(iterator *LineIterator) (map[string]int64, error) {
	counts := make(map[string]int64)
	for iterator.Next() {
		fields := strings.Fields(iterator.Text())
		if len(fields) < minFieldCount {
			continue
		}
		if !isDownloadStatus(fields[statusFieldIndex]) {
			continue
		}
		match := gemDownloadPattern.FindStringSubmatch(fields[pathFieldIndex])
		if match == nil {
			continue
		}
		counts[match[1]]++
	}
	if err := iterator.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
