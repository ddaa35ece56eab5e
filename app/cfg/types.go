package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath   string
	SeedFile string

	// HTTP surface
	Port         string
	APIAccessKey string

	// Background cycles, in seconds
	FeedInterval   int
	ProbeInterval  int
	FetchTimeout   int
	PrivilegedICMP bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) GetFeedInterval() time.Duration {
	return time.Duration(c.FeedInterval) * time.Second
}

func (c *Cfg) GetProbeInterval() time.Duration {
	return time.Duration(c.ProbeInterval) * time.Second
}

func (c *Cfg) GetFetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}
