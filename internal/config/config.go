package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr                string   `yaml:"addr"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Vault struct {
		Backend              string `yaml:"backend"` // "memory" or "dynamodb"
		MaxMemoryBytes       int64  `yaml:"max_memory_bytes"`
		MaxSecretBytes       int64  `yaml:"max_secret_bytes"`
		TTLMinutes           int    `yaml:"ttl_minutes"` // 0 disables expiry
		SweepIntervalSeconds int    `yaml:"sweep_interval_seconds"`
	} `yaml:"vault"`
	DynamoDB struct {
		Table    string `yaml:"table"`
		Endpoint string `yaml:"endpoint"` // override for local DynamoDB
	} `yaml:"dynamodb"`
}

// bodyOverheadBytes covers the JSON envelope around the payload field.
const bodyOverheadBytes = 4096

// MaxBodyBytes derives the HTTP request body cap for submissions.
// With the per-secret cap disabled (0), the body is still bounded by
// the memory budget, which is the most the vault could hold anyway.
func (c Config) MaxBodyBytes() int64 {
	if c.Vault.MaxSecretBytes > 0 {
		return c.Vault.MaxSecretBytes + bodyOverheadBytes
	}
	return c.Vault.MaxMemoryBytes + bodyOverheadBytes
}

func defaultConfig() Config {
	var c Config
	c.Server.Addr = ":8080"
	c.Server.ReadTimeoutSeconds = 10
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128"}
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Vault.Backend = "memory"
	c.Vault.MaxMemoryBytes = 2 * 1024 * 1024 * 1024
	c.Vault.MaxSecretBytes = 1 * 1024 * 1024
	c.Vault.TTLMinutes = 60
	c.Vault.SweepIntervalSeconds = 60
	c.DynamoDB.Table = "secretdrop"
	return c
}

func Load() Config {
	c := defaultConfig()
	if path := os.Getenv("SECRETDROP_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	if v := os.Getenv("SECRETDROP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SECRETDROP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SECRETDROP_LOG_PRETTY"); v == "1" || v == "true" {
		c.Logging.Pretty = true
	}
	if v := os.Getenv("SECRETDROP_ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("SECRETDROP_VAULT_BACKEND"); v != "" {
		c.Vault.Backend = v
	}
	if v := os.Getenv("SECRETDROP_MAX_MEMORY_BYTES"); v != "" {
		var n int64
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Vault.MaxMemoryBytes = n
		}
	}
	if v := os.Getenv("SECRETDROP_MAX_SECRET_BYTES"); v != "" {
		var n int64
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Vault.MaxSecretBytes = n
		}
	}
	if v := os.Getenv("SECRETDROP_TTL_MINUTES"); v != "" {
		var n int
		// 0 is meaningful here (expiry disabled), so check the parse
		if _, err := fmt.Sscan(v, &n); err == nil && n >= 0 {
			c.Vault.TTLMinutes = n
		}
	}
	if v := os.Getenv("SECRETDROP_DYNAMODB_TABLE"); v != "" {
		c.DynamoDB.Table = v
	}
	if v := os.Getenv("SECRETDROP_DYNAMODB_ENDPOINT"); v != "" {
		c.DynamoDB.Endpoint = v
	}
	return c
}

func splitCSV(s string) []string {
	var out []string
	buf := []rune{}
	for _, r := range s {
		if r == ',' {
			if len(buf) > 0 {
				out = append(out, string(buf))
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, r)
	}
	if len(buf) > 0 {
		out = append(out, string(buf))
	}
	return out
}
