package config

// HTTP controls the fundd listener.
type HTTP struct {
	ReadTimeoutSeconds     int      `toml:"ReadTimeoutSeconds" env:"FUNDD_READ_TIMEOUT"`
	WriteTimeoutSeconds    int      `toml:"WriteTimeoutSeconds" env:"FUNDD_WRITE_TIMEOUT"`
	IdleTimeoutSeconds     int      `toml:"IdleTimeoutSeconds" env:"FUNDD_IDLE_TIMEOUT"`
	ShutdownTimeoutSeconds int      `toml:"ShutdownTimeoutSeconds" env:"FUNDD_SHUTDOWN_TIMEOUT"`
	AllowedOrigins         []string `toml:"AllowedOrigins" env:"FUNDD_ALLOWED_ORIGINS"`
	Compress               bool     `toml:"Compress" env:"FUNDD_COMPRESS"`
}

// Auth configures bearer-token checks on mutating routes.
type Auth struct {
	Enabled    bool   `toml:"Enabled" env:"FUNDD_AUTH_ENABLED"`
	HMACSecret string `toml:"HMACSecret" env:"FUNDD_AUTH_HMAC_SECRET"`
	Issuer     string `toml:"Issuer" env:"FUNDD_AUTH_ISSUER"`
	Audience   string `toml:"Audience" env:"FUNDD_AUTH_AUDIENCE"`
	WriteScope string `toml:"WriteScope" env:"FUNDD_AUTH_WRITE_SCOPE"`
}

// RateLimit applies to mutating routes per client.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute" env:"FUNDD_RATE_PER_MINUTE"`
	Burst             int     `toml:"Burst" env:"FUNDD_RATE_BURST"`
}

// Observability toggles metrics, tracing and request logs.
type Observability struct {
	Metrics      bool   `toml:"Metrics" env:"FUNDD_METRICS"`
	Tracing      bool   `toml:"Tracing" env:"FUNDD_TRACING"`
	LogRequests  bool   `toml:"LogRequests" env:"FUNDD_LOG_REQUESTS"`
	OTLPEndpoint string `toml:"OTLPEndpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `toml:"OTLPInsecure" env:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTLPHeaders  string `toml:"OTLPHeaders" env:"OTEL_EXPORTER_OTLP_HEADERS"`
}

// Crowdfund holds defaults for new ledgers.
type Crowdfund struct {
	DefaultPolicy string `toml:"DefaultPolicy" env:"FUNDD_CROWDFUND_POLICY"`
	PayoutPlaces  int32  `toml:"PayoutPlaces" env:"FUNDD_PAYOUT_PLACES"`
}

// Events sizes the replay buffer of the event feed.
type Events struct {
	HistoryLimit int `toml:"HistoryLimit" env:"FUNDD_EVENT_HISTORY"`
}
