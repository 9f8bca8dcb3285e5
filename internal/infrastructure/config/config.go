// Package config resolves the embedder-facing process configuration:
// where the component cache and policy files live, the default WASM
// memory limit, and OCI registry credentials, following the teacher's
// viper-backed RuntimeConfig/system.Config layering.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config aggregates every process-level setting the container wires
// into the infrastructure adapters.
type Config struct {
	// CacheDir holds fetched component binaries and their sibling
	// policy/secrets files.
	CacheDir string
	// WasmMemoryLimitMB bounds per-instance linear memory; -1 disables
	// the limit, 0 selects the 256MB default.
	WasmMemoryLimitMB int
	// MaxConcurrentLoads is read from config and defaults to the CPU
	// count; nothing in this module reads it, so loads and compiles
	// are not limited by it.
	MaxConcurrentLoads int
	// OCIRegistryUser and OCIRegistryPass authenticate OCI pulls, read
	// from environment or config file; empty means anonymous pull.
	OCIRegistryUser string
	OCIRegistryPass string
}

// Load reads configuration from, in order of increasing precedence: a
// config file (if present), environment variables prefixed WASMTOOL_,
// and finally applies defaults for anything left unset.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("wasmtool")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".wasmtool")
	}
	_ = v.ReadInConfig() // absence is not an error; defaults apply

	cfg := &Config{
		CacheDir:            v.GetString("cache_dir"),
		WasmMemoryLimitMB:   v.GetInt("wasm_memory_limit_mb"),
		MaxConcurrentLoads:  v.GetInt("max_concurrent_loads"),
		OCIRegistryUser:     v.GetString("oci_registry_user"),
		OCIRegistryPass:     v.GetString("oci_registry_pass"),
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.CacheDir = filepath.Join(home, ".wasmtool", "cache")
	}
	if c.WasmMemoryLimitMB == 0 {
		c.WasmMemoryLimitMB = 256
	}
	if c.MaxConcurrentLoads == 0 {
		c.MaxConcurrentLoads = runtime.NumCPU()
	}
}
