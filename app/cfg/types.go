package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath    string
	FeedsFile string

	// Read server
	Port      string
	BaseUrl   string
	StaticDir string

	// Fetching
	UserAgent   string
	Timeout     time.Duration // 0 disables
	MaxBodySize int64         // bytes, 0 disables

	// Application metadata
	Timezone string
	Location *time.Location
	Debug    bool
	Version  string
}
