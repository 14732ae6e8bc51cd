package config

import (
	"fmt"
	"slices"
	"strings"
)

// problems collects every validation failure so they are reported at once.
type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) positive(name string, v int64) {
	if v <= 0 {
		p.add("%s must be positive, got %d", name, v)
	}
}

// Validate checks every section and returns one error listing all failures.
func (c *Config) Validate() error {
	var p problems
	c.Server.validate(&p)
	c.Database.validate(&p)
	c.Upload.validate(&p)
	c.Pipeline.validate(&p)
	c.Rate.validate(&p)
	c.Security.validate(&p)
	c.Audit.validate(&p)
	c.Logging.validate(&p)

	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

func (c ServerConfig) validate(p *problems) {
	if c.Port < 1 || c.Port > 65535 {
		p.add("SERVER_PORT (%d) must be 1-65535", c.Port)
	}
	if c.ReadTimeout < 0 {
		p.add("SERVER_READ_TIMEOUT must not be negative")
	}
	p.positive("SERVER_SHUTDOWN_TIMEOUT", int64(c.ShutdownTimeout))
}

// validate skips pool settings when no database is configured.
func (c DatabaseConfig) validate(p *problems) {
	if !c.Enabled() {
		return
	}
	p.positive("DB_MAX_CONNS", int64(c.MaxConns))
	if c.MinConns < 0 {
		p.add("DB_MIN_CONNS must not be negative")
	}
	if c.MaxConns < c.MinConns {
		p.add("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.MaxConns, c.MinConns)
	}
}

func (c UploadConfig) validate(p *problems) {
	p.positive("UPLOAD_MAX_FILE_SIZE", c.MaxFileSize)
	p.positive("UPLOAD_MAX_FILES", int64(c.MaxFiles))
	p.positive("UPLOAD_MAX_CONCURRENT", int64(c.MaxConcurrent))
	p.positive("UPLOAD_MAX_WAIT_TIME", int64(c.MaxWaitTime))
	p.positive("UPLOAD_TIMEOUT", int64(c.Timeout))
}

func (c PipelineConfig) validate(p *problems) {
	p.positive("PIPELINE_PREVIEW_ROWS", int64(c.PreviewRows))
	p.positive("PIPELINE_SUMMARY_COLUMNS", int64(c.SummaryColumns))
	p.positive("PIPELINE_PARALLELISM", int64(c.Parallelism))
}

// validate only applies while rate limiting is on.
func (c RateLimitConfig) validate(p *problems) {
	if !c.Enabled {
		return
	}
	p.positive("RATE_LIMIT_REQUESTS_PER_MINUTE", int64(c.RequestsPerMinute))
	p.positive("RATE_LIMIT_UPLOAD", int64(c.UploadLimit))
}

func (c SecurityConfig) validate(p *problems) {
	if c.RequireAPIKey && len(c.APIKeys) == 0 {
		p.add("REQUIRE_API_KEY is set but API_KEYS is empty")
	}
}

func (c AuditConfig) validate(p *problems) {
	p.positive("AUDIT_RETENTION_DAYS", int64(c.RetentionDays))
	p.positive("AUDIT_CHECK_INTERVAL", int64(c.CheckInterval))
	p.positive("AUDIT_MEMORY_CAPACITY", int64(c.MemoryCapacity))
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

func (c LoggingConfig) validate(p *problems) {
	if !slices.Contains(logLevels, strings.ToLower(c.Level)) {
		p.add("LOG_LEVEL (%q) must be one of: %s", c.Level, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Format)) {
		p.add("LOG_FORMAT (%q) must be one of: %s", c.Format, strings.Join(logFormats, ", "))
	}
}
