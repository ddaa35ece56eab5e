package config

// Seed lists the feed sources and probe targets to upsert at startup
type Seed struct {
	Feeds   []FeedSeed   `yaml:"feeds"`
	Targets []TargetSeed `yaml:"targets"`
}

// FeedSeed is matched against existing sources by URL
type FeedSeed struct {
	Label     string `yaml:"label"`
	URL       string `yaml:"url"`
	Important bool   `yaml:"important"`
}

// TargetSeed is matched against existing targets by address
type TargetSeed struct {
	Label   string `yaml:"label"`
	Address string `yaml:"address"`
}
