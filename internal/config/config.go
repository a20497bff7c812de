// Package config handles configuration for the diycloud tools, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings shared by the provisioning CLI, the store
// bootstrap tool and the admin API server.
//
// Fields:
//   - StorePath: path of the SQLite ledger file.
//   - HomeRoot: directory under which tenant home directories live.
//   - LimiterScript: external script that enforces entitlements.
//   - LimiterTimeout: upper bound on one limiter invocation.
//   - EndpointAddrHTTP: bind address for the admin API.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidity / SessionValidity: credential lifetimes.
//   - DefaultCPU / DefaultMemoryMB / DefaultDiskMB: entitlements applied when
//     the operator passes no explicit limits.
//   - GeneratedPasswordLength: length of generated tenant/admin passwords.
type Config struct {
	StorePath               string
	HomeRoot                string
	LimiterScript           string
	LimiterTimeout          time.Duration
	EndpointAddrHTTP        string
	SecretKey               string
	AccessTokenValidity     time.Duration
	SessionValidity         time.Duration
	DefaultCPU              float64
	DefaultMemoryMB         int
	DefaultDiskMB           int
	GeneratedPasswordLength int
}

// LoadDefaults populates Config with the platform's standard paths and
// limits. The secret key default is insecure and must be overridden in prod.
func (c *Config) LoadDefaults() {
	c.StorePath = "/opt/diycloud/usermgmt/db/users.db"
	c.HomeRoot = "/home"
	c.LimiterScript = "/opt/diycloud/resources/apply_limits.sh"
	c.LimiterTimeout = 30 * time.Second
	c.EndpointAddrHTTP = ":5000"
	c.SecretKey = "secretKey"
	c.AccessTokenValidity = 15 * time.Minute
	c.SessionValidity = 24 * time.Hour
	c.DefaultCPU = 1.0
	c.DefaultMemoryMB = 2048
	c.DefaultDiskMB = 5120
	c.GeneratedPasswordLength = 16
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
