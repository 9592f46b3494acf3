package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// Server
	out.Server = cfg.Server
	redact(&out.Server.APIKey)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}
	if cfg.Market.Admins != nil {
		out.Market.Admins = make([]string, len(cfg.Market.Admins))
		copy(out.Market.Admins, cfg.Market.Admins)
	}
	if cfg.Market.Custodians != nil {
		out.Market.Custodians = make([]string, len(cfg.Market.Custodians))
		copy(out.Market.Custodians, cfg.Market.Custodians)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
