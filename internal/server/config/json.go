package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophfiles/internal/flagx"
	"github.com/dmitrijs2005/gophfiles/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept both strings
// such as "10m" and integer nanoseconds; omitted fields keep their previous
// value.
type JsonConfig struct {
	Env              string         `json:"env"`
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn"`
	SecretKey        string         `json:"secret_key"`
	StorageBackend   string         `json:"storage_backend"`
	ChunkSize        int            `json:"chunk_size"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	PublicScheme     string         `json:"public_scheme"`
	HostAliases      []string       `json:"host_aliases"`
	RedisAddr        string         `json:"redis_addr"`
	CacheTTL         timex.Duration `json:"cache_ttl"`
	RetentionPeriod  timex.Duration `json:"retention_period"`
	SweepInterval    timex.Duration `json:"sweep_interval"`
	StaleUploadAfter timex.Duration `json:"stale_upload_after"`
	ConcealPrivate   *bool          `json:"conceal_private"`
	LogBackend       string         `json:"log_backend"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag. Without the flag nothing is loaded. An unreadable file
// or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.Env, c.Env)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.PublicScheme, c.PublicScheme)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.LogBackend, c.LogBackend)

	if c.ChunkSize > 0 {
		config.ChunkSize = c.ChunkSize
	}
	if len(c.HostAliases) > 0 {
		config.HostAliases = c.HostAliases
	}
	if c.CacheTTL.Duration > 0 {
		config.CacheTTL = c.CacheTTL.Duration
	}
	if c.RetentionPeriod.Duration > 0 {
		config.RetentionPeriod = c.RetentionPeriod.Duration
	}
	if c.SweepInterval.Duration > 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.StaleUploadAfter.Duration > 0 {
		config.StaleUploadAfter = c.StaleUploadAfter.Duration
	}
	if c.ConcealPrivate != nil {
		config.ConcealPrivate = *c.ConcealPrivate
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
