package codexrun

import "log/slog"

// ClientOptions holds resolved configuration for a Client.
type ClientOptions struct {
	// BaseURL is exported to codex as OPENAI_BASE_URL.
	BaseURL string

	// APIKey is exported to codex as CODEX_API_KEY.
	APIKey string

	// Logger receives debug traces of each turn. Defaults to a discard logger.
	Logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*ClientOptions)

func resolveClientOptions(opts ...ClientOption) ClientOptions {
	var co ClientOptions
	for _, opt := range opts {
		opt(&co)
	}
	if co.Logger == nil {
		co.Logger = slog.New(slog.DiscardHandler)
	}
	return co
}

// WithBaseURL sets the API base URL passed to every turn.
func WithBaseURL(url string) ClientOption {
	return func(o *ClientOptions) {
		o.BaseURL = url
	}
}

// WithAPIKey sets the API key passed to every turn.
func WithAPIKey(key string) ClientOption {
	return func(o *ClientOptions) {
		o.APIKey = key
	}
}

// WithLogger sets the logger used by the client and its threads.
func WithLogger(l *slog.Logger) ClientOption {
	return func(o *ClientOptions) {
		o.Logger = l
	}
}
