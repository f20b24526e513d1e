package config

const (
	defaultDataDir               = "~/.local/share/reddit2bsky"
	defaultLogDir                = "~/.local/share/reddit2bsky/logs"
	defaultSubreddit             = "ProgrammerHumor"
	defaultMinScore              = 200
	defaultRedditBaseURL         = "https://api.pullpush.io"
	defaultRedditTimeoutSeconds  = 30
	defaultPDSURL                = "https://bsky.social"
	defaultBlueskyTimeoutSeconds = 30
	defaultDownloadTimeout       = 30
	defaultLogFormat             = "auto"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Reddit: Reddit{
			Subreddits:     []string{defaultSubreddit},
			MinScore:       defaultMinScore,
			BaseURL:        defaultRedditBaseURL,
			RequestTimeout: defaultRedditTimeoutSeconds,
		},
		Bluesky: Bluesky{
			PDSURL:         defaultPDSURL,
			RequestTimeout: defaultBlueskyTimeoutSeconds,
		},
		Pipeline: Pipeline{
			DownloadTimeout: defaultDownloadTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
