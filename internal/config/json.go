package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/diycloud/internal/flagx"
	"github.com/dmitrijs2005/diycloud/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "30s" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	StorePath               string         `json:"store_path"`
	HomeRoot                string         `json:"home_root"`
	LimiterScript           string         `json:"limiter_script"`
	LimiterTimeout          timex.Duration `json:"limiter_timeout"`
	EndpointAddrHTTP        string         `json:"endpoint_addr_http"`
	SecretKey               string         `json:"secret_key"`
	AccessTokenValidity     timex.Duration `json:"access_token_validity"`
	SessionValidity         timex.Duration `json:"session_validity"`
	DefaultCPU              float64        `json:"default_cpu"`
	DefaultMemoryMB         int            `json:"default_memory_mb"`
	DefaultDiskMB           int            `json:"default_disk_mb"`
	GeneratedPasswordLength int            `json:"generated_password_length"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	// seed the DTO with the current values so a partial file overrides only
	// the fields it names
	c := &JsonConfig{
		StorePath:               config.StorePath,
		HomeRoot:                config.HomeRoot,
		LimiterScript:           config.LimiterScript,
		LimiterTimeout:          timex.Duration{Duration: config.LimiterTimeout},
		EndpointAddrHTTP:        config.EndpointAddrHTTP,
		SecretKey:               config.SecretKey,
		AccessTokenValidity:     timex.Duration{Duration: config.AccessTokenValidity},
		SessionValidity:         timex.Duration{Duration: config.SessionValidity},
		DefaultCPU:              config.DefaultCPU,
		DefaultMemoryMB:         config.DefaultMemoryMB,
		DefaultDiskMB:           config.DefaultDiskMB,
		GeneratedPasswordLength: config.GeneratedPasswordLength,
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.StorePath = c.StorePath
	config.HomeRoot = c.HomeRoot
	config.LimiterScript = c.LimiterScript
	config.LimiterTimeout = time.Duration(c.LimiterTimeout.Duration)
	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.SecretKey = c.SecretKey
	config.AccessTokenValidity = time.Duration(c.AccessTokenValidity.Duration)
	config.SessionValidity = time.Duration(c.SessionValidity.Duration)
	config.DefaultCPU = c.DefaultCPU
	config.DefaultMemoryMB = c.DefaultMemoryMB
	config.DefaultDiskMB = c.DefaultDiskMB
	config.GeneratedPasswordLength = c.GeneratedPasswordLength
}
