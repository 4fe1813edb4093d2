package feed

import (
	"strings"
	"testing"
)

func TestFilterer_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "Test Entry 1"},
		{Title: "Test Entry 2"},
	}

	result := filterer.Run(entries, &Source{})

	if len(result) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(result))
	}

	for i, entry := range result {
		if entry.IsFiltered {
			t.Errorf("Entry %d should not be filtered when no filters are configured", i)
		}
	}

	if got := filterer.Run(entries, nil); len(got) != 2 {
		t.Errorf("Expected 2 entries for nil source, got %d", len(got))
	}
}

func TestFilterer_TitleInclude(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "Breaking News: Important Update"},
		{Title: "Sports Update"},
		{Title: "Weather Report"},
	}

	source := &Source{
		Filters: []SourceFilter{
			{Field: "title", Includes: []string{"news", "update"}},
		},
	}

	result := filterer.Run(entries, source)

	if len(result) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(result))
	}
	if result[0].IsFiltered {
		t.Errorf("Expected first entry to pass, got reason: %s", result[0].FilterReason)
	}
	if result[1].IsFiltered {
		t.Errorf("Expected second entry to pass, got reason: %s", result[1].FilterReason)
	}
	if !result[2].IsFiltered {
		t.Error("Expected third entry to be filtered")
	}
	if !strings.Contains(result[2].FilterReason, "does not contain any of") {
		t.Errorf("Unexpected filter reason: %s", result[2].FilterReason)
	}
}

func TestFilterer_ExcludeIsCaseInsensitive(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "SPONSORED: Buy now", Author: "ads"},
		{Title: "Regular post", Author: "Jane"},
	}

	source := &Source{
		Filters: []SourceFilter{
			{Field: "title", Excludes: []string{"sponsored"}},
		},
	}

	result := filterer.Run(entries, source)

	if !result[0].IsFiltered {
		t.Error("Expected sponsored entry to be filtered")
	}
	if result[0].FilterReason != "Excluded by title filter: contains 'sponsored'" {
		t.Errorf("Unexpected filter reason: %s", result[0].FilterReason)
	}
	if result[1].IsFiltered {
		t.Error("Expected regular entry to pass")
	}
}

func TestFilterer_AuthorAndLinkFields(t *testing.T) {
	filterer := NewFilterer()

	entries := []Entry{
		{Title: "One", Author: "bot@example.com", Link: "https://example.com/a"},
		{Title: "Two", Author: "Jane", Link: "https://example.com/podcast/b"},
		{Title: "Three", Author: "Jane", Link: "https://example.com/c"},
	}

	source := &Source{
		Filters: []SourceFilter{
			{Field: "author", Excludes: []string{"bot@"}},
			{Field: "link", Excludes: []string{"/podcast/"}},
		},
	}

	result := filterer.Run(entries, source)

	if !result[0].IsFiltered {
		t.Error("Expected entry by bot to be filtered")
	}
	if !result[1].IsFiltered {
		t.Error("Expected podcast entry to be filtered")
	}
	if result[2].IsFiltered {
		t.Errorf("Expected third entry to pass, got reason: %s", result[2].FilterReason)
	}
}
