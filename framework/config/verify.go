package config

import (
	"errors"
	"fmt"
)

func (c *Config) Verify() error {
	if err := c.CryptoConfig.Verify(); err != nil {
		return err
	}
	if err := c.PageCacheConfig.Verify(); err != nil {
		return err
	}
	if err := c.DatabaseConfig.Verify(); err != nil {
		return err
	}
	if err := c.ApiClientConfig.Verify(); err != nil {
		return err
	}
	return nil
}

func (c *CryptoConfig) Verify() error {
	if c.PBKDF2Iterations <= 0 {
		return fmt.Errorf("cr_pbkdf2_iterations is zero or negative, which is forbidden: %d", c.PBKDF2Iterations)
	}
	const minKeyBits = 2048
	if c.RSAKeyBits < minKeyBits {
		return fmt.Errorf("cr_rsa_key_bits is configured to be < %d, which is forbidden: %d", minKeyBits, c.RSAKeyBits)
	}
	if c.SaltSize < 16 {
		return fmt.Errorf("cr_salt_size is configured to be < 16, which is forbidden: %d", c.SaltSize)
	}
	if c.SetupRetries <= 0 {
		return fmt.Errorf("cr_setup_retries is zero or negative, which is forbidden: %d", c.SetupRetries)
	}
	return nil
}

func (c *PageCacheConfig) Verify() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("pc_page_size is zero or negative, which is forbidden: %d", c.PageSize)
	}
	if c.MemoryPages <= 0 {
		return fmt.Errorf("pc_memory_pages is zero or negative, which is forbidden: %d", c.MemoryPages)
	}
	if len(c.DiskCacheDir) == 0 {
		return errors.New("pc_disk_cache_dir is empty, but it is required")
	}
	if c.MaxDiskPages <= 0 {
		return fmt.Errorf("pc_max_disk_pages is zero or negative, which is forbidden: %d", c.MaxDiskPages)
	}
	if c.MinReadaheadStart <= 0 {
		return fmt.Errorf("pc_min_readahead_start is zero or negative, which is forbidden: %d", c.MinReadaheadStart)
	}
	if c.MinReadaheadRand <= 0 {
		return fmt.Errorf("pc_min_readahead_rand is zero or negative, which is forbidden: %d", c.MinReadaheadRand)
	}
	if c.MaxReadaheadSec <= 0 {
		return fmt.Errorf("pc_max_readahead_sec is zero or negative, which is forbidden: %d", c.MaxReadaheadSec)
	}
	if c.MaxReadahead <= 0 {
		return fmt.Errorf("pc_max_readahead is zero or negative, which is forbidden: %d", c.MaxReadahead)
	}
	if c.FreshStreamMultiplier <= 0 {
		return fmt.Errorf("pc_fresh_stream_multiplier is zero or negative, which is forbidden: %d", c.FreshStreamMultiplier)
	}
	if c.MaxConcurrentReadahead <= 0 {
		return fmt.Errorf("pc_max_concurrent_readahead is zero or negative, which is forbidden: %d", c.MaxConcurrentReadahead)
	}
	if c.FlushPeriodSeconds <= 0 {
		return fmt.Errorf("pc_flush_period_seconds is zero or negative, which is forbidden: %d", c.FlushPeriodSeconds)
	}
	if c.AgingPeriodSeconds <= 0 {
		return fmt.Errorf("pc_aging_period_seconds is zero or negative, which is forbidden: %d", c.AgingPeriodSeconds)
	}
	if c.MinFreeDiskReserveBytes < 0 {
		return fmt.Errorf("pc_min_free_disk_reserve_bytes is negative, which is forbidden: %d", c.MinFreeDiskReserveBytes)
	}
	return nil
}

func (c *DatabaseConfig) Verify() error {
	if len(c.DatabaseKind) == 0 {
		return errors.New("db_database_kind is empty, but it is required")
	}
	if c.DatabaseKind == "postgres" {
		if err := c.PostgresConfig.Verify(); err != nil {
			return err
		}
	}
	return nil
}

func (c *PostgresConfig) Verify() error {
	if len(c.DatabaseName) == 0 {
		return errors.New("pg_db_name is empty, but it is required")
	}
	if len(c.UserName) == 0 {
		return errors.New("pg_user is empty, but it is required")
	}
	return nil
}

func (c *ApiClientConfig) Verify() error {
	if len(c.APIHost) == 0 {
		return errors.New("ac_api_host is empty, but it is required")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("ac_max_retries is zero or negative, which is forbidden: %d", c.MaxRetries)
	}
	if c.RateLimitQPS <= 0 {
		return fmt.Errorf("ac_rate_limit_qps is zero or negative, which is forbidden: %f", c.RateLimitQPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("ac_rate_limit_burst is zero or negative, which is forbidden: %d", c.RateLimitBurst)
	}
	if c.RateLimiterPruneSecs <= 0 {
		return fmt.Errorf("ac_rate_limiter_prune_seconds is zero or negative, which is forbidden: %d", c.RateLimiterPruneSecs)
	}
	return nil
}
