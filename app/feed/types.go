package feed

import (
	"errors"
	"time"
)

// ErrMalformedEntry marks a feed entry that cannot become a post.
var ErrMalformedEntry = errors.New("malformed feed entry")

// Feed processing types

type Metadata struct {
	Title string
	Link  string
}

type Entry struct {
	Title         string
	Author        string // "email (name)", "name" or "email"
	Link          string
	Updated       string // raw date text as published by the feed
	UpdatedParsed *time.Time

	IsFiltered   bool
	FilterReason string
}

// Timestamp returns the Unix seconds of the parsed date, or 0 when the feed
// carried no parseable date.
func (e Entry) Timestamp() int64 {
	if e.UpdatedParsed == nil {
		return 0
	}
	return e.UpdatedParsed.Unix()
}

// Source configuration types

type Source struct {
	URL      string         `yaml:"url"`
	Settings SourceSettings `yaml:"settings"`
	Filters  []SourceFilter `yaml:"filters"`
}

type SourceSettings struct {
	ExtractContent bool `yaml:"extract_content"` // reduce pages to the main article before mirroring
	MaxEntries     int  `yaml:"max_entries"`     // 0 = all
}

type SourceFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
