// MIT License
//
// # Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Fetcher  FetcherConfig  `yaml:"fetcher"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	GeoIP    GeoIPConfig    `yaml:"geoip"`
	Prewarm  PrewarmConfig  `yaml:"prewarm"`
	Purge    PurgeConfig    `yaml:"purge"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `yaml:"host"                env:"SERVER_HOST"                env-default:"0.0.0.0"`
	Port              int           `yaml:"port"                env:"SERVER_PORT"                env-default:"8080"`
	ReadTimeout       time.Duration `yaml:"read_timeout"        env:"SERVER_READ_TIMEOUT"        env-default:"10s"`
	WriteTimeout      time.Duration `yaml:"write_timeout"       env:"SERVER_WRITE_TIMEOUT"       env-default:"30s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"SERVER_SHUTDOWN_TIMEOUT"    env-default:"10s"`
	Production        bool          `yaml:"production"          env:"SERVER_PRODUCTION"          env-default:"true"`
	MaxSSEConnections int           `yaml:"max_sse_connections" env:"SERVER_MAX_SSE_CONNECTIONS" env-default:"50"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path               string        `yaml:"path"                 env:"DB_PATH"                 env-default:"data/wotcache.db"`
	MaxOpenConns       int           `yaml:"max_open_conns"       env:"DB_MAX_OPEN_CONNS"       env-default:"10"`
	MaxIdleConns       int           `yaml:"max_idle_conns"       env:"DB_MAX_IDLE_CONNS"       env-default:"5"`
	ConnMaxLife        time.Duration `yaml:"conn_max_life"        env:"DB_CONN_MAX_LIFE"        env-default:"1h"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" env:"DB_SLOW_QUERY_THRESHOLD" env-default:"100ms"`
}

// CacheConfig controls record freshness and domain canonicalisation.
type CacheConfig struct {
	ExpirationDays  int  `yaml:"expiration_days"  env:"WOT_EXPIRATION_DAYS"  env-default:"180"`
	RegistrableOnly bool `yaml:"registrable_only" env:"WOT_REGISTRABLE_ONLY" env-default:"false"`
}

// Expiration returns the freshness window as a duration.
func (c CacheConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationDays) * 24 * time.Hour
}

// FetcherConfig holds remote API settings.
type FetcherConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"WOT_API_URL"       env-default:"http://api.mywot.com/0.4/public_query2"`
	Timeout   time.Duration `yaml:"timeout"    env:"WOT_FETCH_TIMEOUT" env-default:"10s"`
	UserAgent string        `yaml:"user_agent" env:"WOT_USER_AGENT"    env-default:"wotcache"`
}

// ScoringConfig overrides the stock scoring tables. Unset fields keep the defaults.
type ScoringConfig struct {
	ReputationThresholds []int          `yaml:"reputation_thresholds" env:"SCORING_REPUTATION_THRESHOLDS" env-separator:","`
	ConfidenceThresholds []int          `yaml:"confidence_thresholds" env:"SCORING_CONFIDENCE_THRESHOLDS" env-separator:","`
	ReputationLabels     map[int]string `yaml:"reputation_labels"`
	ConfidenceLabels     map[int]string `yaml:"confidence_labels"`
	CategoryLabels       map[int]string `yaml:"category_labels"`
	AssetTemplate        string         `yaml:"asset_template"        env:"SCORING_ASSET_TEMPLATE"`
}

// GeoIPConfig points at optional MaxMind databases. With none set, host
// enrichment is off.
type GeoIPConfig struct {
	CityDB    string `yaml:"city_db"    env:"GEOIP_CITY_DB"`
	CountryDB string `yaml:"country_db" env:"GEOIP_COUNTRY_DB"`
	ASNDB     string `yaml:"asn_db"     env:"GEOIP_ASN_DB"`
	CacheSize int    `yaml:"cache_size" env:"GEOIP_CACHE_SIZE" env-default:"10000"`
}

// PrewarmConfig names a domain list to load through the cache at startup.
type PrewarmConfig struct {
	File        string `yaml:"file"        env:"PREWARM_FILE"`
	Watch       bool   `yaml:"watch"       env:"PREWARM_WATCH"       env-default:"true"`
	Concurrency int    `yaml:"concurrency" env:"PREWARM_CONCURRENCY" env-default:"4"`
}

// PurgeConfig controls deletion of long-unrefreshed records. 0 days disables it.
type PurgeConfig struct {
	RetentionDays int           `yaml:"retention_days" env:"PURGE_RETENTION_DAYS" env-default:"0"`
	RunAt         string        `yaml:"run_at"         env:"PURGE_RUN_AT"         env-default:"02:00"`
	CheckInterval time.Duration `yaml:"check_interval" env:"PURGE_CHECK_INTERVAL" env-default:"1h"`
	Vacuum        bool          `yaml:"vacuum"         env:"PURGE_VACUUM"         env-default:"false"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
