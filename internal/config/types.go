package config

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Schedule  ScheduleConfig  `json:"schedule"`
	Sources   SourcesConfig   `json:"sources"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Ledger    LedgerConfig    `json:"ledger"`

	Subscribers SubscribersConfig `json:"subscribers"`
	Admin       AdminConfig       `json:"admin"`
	Keepalive   *KeepaliveConfig  `json:"keepalive,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ScheduleConfig controls the broadcast trigger.
//
// Mode values:
//   - "daily": fire once per calendar day at SendTime (local to Timezone)
//   - "interval": fire every Interval (ops/testing use)
//
// The trigger persists a last-fire marker at MarkerPath so a restart does not
// double-fire or miss a window.
type ScheduleConfig struct {
	Enabled  bool   `json:"enabled"`
	Mode     string `json:"mode"`
	SendTime string `json:"send_time"` // "HH:MM", daily mode
	// Interval is a Go duration string (interval mode).
	Interval string `json:"interval,omitempty"`
	Timezone string `json:"timezone,omitempty"` // IANA TZ, e.g. "Africa/Nairobi"
	// PollEvery is the trigger poll cadence (default "30s").
	PollEvery  string `json:"poll_every,omitempty"`
	MarkerPath string `json:"marker_path"`
}

// SourcesConfig configures the event providers and the shared relevance filters.
//
// All durations are Go duration strings.
type SourcesConfig struct {
	// WindowDays is how far ahead the fetch window extends (default 7).
	WindowDays int `json:"window_days,omitempty"`
	// FetchTimeout bounds a single provider request (default "15s").
	FetchTimeout string `json:"fetch_timeout,omitempty"`
	// CollectDeadline bounds the whole fan-out (default "45s").
	CollectDeadline string `json:"collect_deadline,omitempty"`
	// Keywords is the topical vocabulary; a title must match at least one
	// keyword to be retained. Empty means the built-in tech vocabulary.
	Keywords []string `json:"keywords,omitempty"`

	Eventbrite EventbriteConfig `json:"eventbrite"`
	Meetup     MeetupConfig     `json:"meetup"`
	RSS        RSSConfig        `json:"rss"`
}

type EventbriteConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	// PageSize per search request (default 50).
	PageSize int `json:"page_size,omitempty"`
}

type MeetupConfig struct {
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"base_url,omitempty"`
	// Queries are search terms issued as separate GraphQL requests.
	Queries []string `json:"queries,omitempty"`
}

type RSSConfig struct {
	Enabled bool     `json:"enabled"`
	Feeds   []string `json:"feeds,omitempty"`
}

type BroadcastConfig struct {
	// MinEvents is the minimum usable digest size (default 10).
	MinEvents int `json:"min_events,omitempty"`
	// MaxEvents caps a digest (default 10).
	MaxEvents int `json:"max_events,omitempty"`
	// RatePerSec limits outbound sends (default 10).
	RatePerSec int `json:"rate_per_sec,omitempty"`
	// SendTimeout bounds a single recipient send (default "15s").
	SendTimeout string `json:"send_timeout,omitempty"`
}

type LedgerConfig struct {
	Path string `json:"path"`
}

type SubscribersConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type AdminConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr,omitempty"` // default "127.0.0.1:5000"
	Password string `json:"password,omitempty"`
}

// KeepaliveConfig configures the optional self-ping (free-tier hosts sleep
// without inbound traffic).
type KeepaliveConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	// Spec is a cron spec or @every descriptor (default "@every 10m").
	Spec string `json:"spec,omitempty"`
}
