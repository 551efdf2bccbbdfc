// Package config holds the ini-backed configuration file structure for
// this engine, grounded on go-fed/apcore/framework/config's section
// layout and field-tag style.
package config

// Overall configuration file structure.
type Config struct {
	CryptoConfig    CryptoConfig    `ini:"crypto" comment:"Key vault configuration"`
	PageCacheConfig PageCacheConfig `ini:"pagecache" comment:"Page cache configuration"`
	DatabaseConfig  DatabaseConfig  `ini:"database" comment:"Database configuration"`
	ApiClientConfig ApiClientConfig `ini:"apiclient" comment:"Outbound API client configuration"`
}

// CryptoConfig configures the key vault's password-derived key hierarchy
// (spec.md §4.2).
type CryptoConfig struct {
	PBKDF2Iterations  int `ini:"cr_pbkdf2_iterations" comment:"(default: 20000) PBKDF2-HMAC-SHA512 iteration count for the wrapper key; fixed at 20000 for key version 1"`
	RSAKeyBits        int `ini:"cr_rsa_key_bits" comment:"(default: 4096) RSA key size in bits for the user keypair"`
	SaltSize          int `ini:"cr_salt_size" comment:"(default: 64) Size in bytes of the PBKDF2 salt"`
	DerivedKeyTTLSecs int `ini:"cr_derived_key_ttl_seconds" comment:"(default: 30) Seconds a folder/file codec is retained in the cache manager before re-deriving"`
	SetupRetries      int `ini:"cr_setup_retries" comment:"(default: 5) Validated but not read; transport retries for setup/start/key-fetch round-trips are governed by ac_max_retries"`
}

func DefaultCryptoConfig() CryptoConfig {
	return CryptoConfig{
		PBKDF2Iterations:  20000,
		RSAKeyBits:        4096,
		SaltSize:          64,
		DerivedKeyTTLSecs: 30,
		SetupRetries:      5,
	}
}

// PageCacheConfig configures the two-tier read page cache (spec.md §4.3).
type PageCacheConfig struct {
	PageSize                 int     `ini:"pc_page_size" comment:"(default: 2097152) Fixed page size in bytes for both memory and disk tiers"`
	MemoryPages              int     `ini:"pc_memory_pages" comment:"(default: 512) Number of fixed-size pages in the memory pool"`
	DiskCacheDir             string  `ini:"pc_disk_cache_dir" comment:"(required) Directory holding the pagefile; the row table lives in the database"`
	MaxDiskPages             int64   `ini:"pc_max_disk_pages" comment:"(default: 65536) Maximum number of slots the on-disk pagefile may grow to"`
	MinReadaheadStart        int     `ini:"pc_min_readahead_start" comment:"(default: 65536) Minimum readahead size in bytes when starting a stream at offset 0 with a small read"`
	MinReadaheadRand         int     `ini:"pc_min_readahead_rand" comment:"(default: 16384) Minimum readahead size in bytes for non-sequential-start reads"`
	MaxReadaheadSec          int     `ini:"pc_max_readahead_sec" comment:"(default: 2) Ceiling on readahead size expressed as seconds of current observed stream speed"`
	MaxReadahead             int     `ini:"pc_max_readahead" comment:"(default: 4194304) Absolute ceiling on a single readahead size in bytes"`
	FreshStreamMultiplier    int     `ini:"pc_fresh_stream_multiplier" comment:"(default: 4) Multiplier applied to readahead size for a freshly detected sequential stream"`
	MaxConcurrentReadahead   int     `ini:"pc_max_concurrent_readahead" comment:"(default: 6) Readahead is skipped once this many readahead fetches are already in flight"`
	FlushPeriodSeconds       int     `ini:"pc_flush_period_seconds" comment:"(default: 15) Period between flush cycles moving resident memory pages to the pagefile and draining batched access updates"`
	AgingPeriodSeconds       int     `ini:"pc_aging_period_seconds" comment:"(default: 60) Period between aging sweeps that rank and evict cold pages"`
	ReadaheadEvictionPenalty float64 `ini:"pc_readahead_eviction_penalty" comment:"(default: 0.5) Not read by the page cache; the aging sweep does not score readahead pages separately from data pages"`
	MinFreeDiskReserveBytes  int64   `ini:"pc_min_free_disk_reserve_bytes" comment:"(default: 104857600) Free-space headroom the pagefile must leave on its filesystem; growth stops and disk-full handling triggers once free space drops below this plus one page"`
}

func DefaultPageCacheConfig() PageCacheConfig {
	return PageCacheConfig{
		PageSize:                 2097152,
		MemoryPages:              512,
		MaxDiskPages:             65536,
		MinReadaheadStart:        65536,
		MinReadaheadRand:         16384,
		MaxReadaheadSec:          2,
		MaxReadahead:             4194304,
		FreshStreamMultiplier:    4,
		MaxConcurrentReadahead:   6,
		FlushPeriodSeconds:       15,
		AgingPeriodSeconds:       60,
		ReadaheadEvictionPenalty: 0.5,
		MinFreeDiskReserveBytes:  104857600,
	}
}

// DatabaseConfig configures the META_STORE backing (spec.md §6).
type DatabaseConfig struct {
	DatabaseKind           string         `ini:"db_database_kind" comment:"(required) Only \"postgres\" supported"`
	ConnMaxLifetimeSeconds int            `ini:"db_conn_max_lifetime_seconds" comment:"(default: indefinite) Maximum lifetime of a connection in seconds; a value of zero or unset value means indefinite"`
	MaxOpenConns           int            `ini:"db_max_open_conns" comment:"(default: infinite) Maximum number of open connections to the database; a value of zero or unset value means infinite"`
	MaxIdleConns           int            `ini:"db_max_idle_conns" comment:"(default: 2) Maximum number of idle connections in the connection pool to the database; a value of zero maintains no idle connections"`
	PostgresConfig         PostgresConfig `ini:"db_postgres,omitempty" comment:"Only needed if database_kind is postgres, and values are based on the github.com/jackc/pgx driver"`
}

// PostgresConfig configures the Postgres META_STORE backing.
type PostgresConfig struct {
	DatabaseName            string `ini:"pg_db_name" comment:"(required) Database name"`
	UserName                string `ini:"pg_user" comment:"(required) User to connect as"`
	Host                    string `ini:"pg_host" comment:"(default: localhost) The Postgres host to connect to"`
	Port                    int    `ini:"pg_port" comment:"(default: 5432) The port to connect to"`
	Password                string `ini:"password" comment:"The database password to use to connect"`
	SSLMode                 string `ini:"pg_ssl_mode" comment:"(default: require) SSL mode to use when connecting"`
	FallbackApplicationName string `ini:"pg_fallback_application_name" comment:"An application_name to fall back to if one is not provided"`
	ConnectTimeout          int    `ini:"pg_connect_timeout" comment:"(default: indefinite) Maximum wait when connecting to a database, zero or unset means indefinite"`
	SSLCert                 string `ini:"pg_ssl_cert" comment:"PEM-encoded certificate file location"`
	SSLKey                  string `ini:"pg_ssl_key" comment:"PEM-encoded private key file location"`
	SSLRootCert             string `ini:"pg_ssl_root_cert" comment:"PEM-encoded root certificate file location"`
	Schema                  string `ini:"pg_schema" comment:"Postgres schema prefix to use"`
}

// ApiClientConfig configures the pooled/retried transport to the
// META_STORE-adjacent API and content hosts (spec.md §2, §6).
type ApiClientConfig struct {
	APIHost              string  `ini:"ac_api_host" comment:"(required) Base URL of the metadata API host serving the crypto_* and filesystem calls"`
	MaxIdleConnsPerHost  int     `ini:"ac_max_idle_conns_per_host" comment:"(default: 8) Maximum idle pooled connections kept per content host"`
	RequestTimeoutSecs   int     `ini:"ac_request_timeout_seconds" comment:"(default: 30) Timeout for a single outbound API request; zero means no timeout"`
	MaxRetries           int     `ini:"ac_max_retries" comment:"(default: 5) Maximum retry attempts for a retryable transport failure"`
	RetryBaseDelayMillis int     `ini:"ac_retry_base_delay_millis" comment:"(default: 200) Base delay for exponential backoff between retries"`
	RateLimitQPS         float64 `ini:"ac_rate_limit_qps" comment:"(default: 10) Per-host steady-state outbound rate limit"`
	RateLimitBurst       int     `ini:"ac_rate_limit_burst" comment:"(default: 20) Per-host outbound burst tolerance"`
	RateLimiterPruneSecs int     `ini:"ac_rate_limiter_prune_seconds" comment:"(default: 60) Period between pruning unused per-host rate limiters"`
}

func DefaultApiClientConfig() ApiClientConfig {
	return ApiClientConfig{
		MaxIdleConnsPerHost:  8,
		RequestTimeoutSecs:   30,
		MaxRetries:           5,
		RetryBaseDelayMillis: 200,
		RateLimitQPS:         10,
		RateLimitBurst:       20,
		RateLimiterPruneSecs: 60,
	}
}
