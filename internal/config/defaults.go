package config

const (
	defaultInboxDir          = "~/audiobooks/inbox"
	defaultStageDir          = "~/.local/share/audiomason/stage"
	defaultOutputDir         = "~/audiobooks/output"
	defaultHistoryDB         = "~/.local/share/audiomason/history.db"
	defaultCleanInbox        = "no"
	defaultCoverGCMaxAgeDays = 30
	defaultCoverGCMaxMB      = 200
	defaultFFmpegLogLevel    = "warning"
	defaultFFmpegQA          = 2
	defaultLookupBaseURL     = "https://openlibrary.org"
	defaultLookupTimeout     = 5
	defaultProcessingLogName = "import.log.jsonl"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InboxDir:  defaultInboxDir,
			StageDir:  defaultStageDir,
			OutputDir: defaultOutputDir,
			HistoryDB: defaultHistoryDB,
		},
		Preflight: Preflight{
			CleanInbox: defaultCleanInbox,
		},
		Cover: Cover{
			CacheDir:     defaultCoverCacheDir(),
			GCMaxAgeDays: defaultCoverGCMaxAgeDays,
			GCMaxMB:      defaultCoverGCMaxMB,
		},
		FFmpeg: FFmpeg{
			LogLevel: defaultFFmpegLogLevel,
			QA:       defaultFFmpegQA,
		},
		Lookup: Lookup{
			Enabled:        true,
			BaseURL:        defaultLookupBaseURL,
			TimeoutSeconds: defaultLookupTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
