package domain

import (
	"regexp"
	"time"
)

// QueueItem is a leased refresh request.
type QueueItem struct {
	ID        int64
	FrameID   FrameID
	Filename  string
	Sortkey   string
	Added     time.Time
	Attempts  int
	Worker    string
	StartedAt time.Time
}

type InProgress struct {
	Worker    string
	FrameID   FrameID
	Filename  string
	StartedAt time.Time
}

type FailedItem struct {
	FrameID  FrameID
	Filename string
	FailedAt time.Time
	Error    string
}

// QueueStatus summarizes the refresh queue.
type QueueStatus struct {
	Pending    int
	Deferred   int
	InProgress []InProgress
	Failed     []FailedItem
}

var sortkeyPatterns = []struct {
	prefix  string
	pattern *regexp.Regexp
}{
	{"z", regexp.MustCompile(`^[NS](?P<date>\d{8})\w(?P<num>\d+).*`)},
	{"z", regexp.MustCompile(`^SDC[SHK]_(?P<date>\d{8})_(?P<num>\d+).*`)},
	{"x", regexp.MustCompile(`^(?P<date>\d{8})_(?P<num>.*)_obslog.txt`)},
	{"y", regexp.MustCompile(`^img_(?P<date>\d{8})_(?P<num>\w+).*`)},
}

// Sortkey derives the queue ordering key from a filename.
//
// Newer observations sort higher. Filenames of unknown shape sort below all
// recognised ones.
func Sortkey(filename string) string {
	for _, p := range sortkeyPatterns {
		m := p.pattern.FindStringSubmatch(filename)
		if m == nil {
			continue
		}
		date := m[p.pattern.SubexpIndex("date")]
		num := m[p.pattern.SubexpIndex("num")]
		return p.prefix + date + num
	}
	return "aaaa" + filename
}
