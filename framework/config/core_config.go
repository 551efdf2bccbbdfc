package config

func (c *Config) Schema() string {
	return c.DatabaseConfig.PostgresConfig.Schema
}

func (c *Config) DiskCacheDir() string {
	return c.PageCacheConfig.DiskCacheDir
}
