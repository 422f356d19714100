// Package config holds the typed, file-loadable tunables spec §6 lists as
// compile-time constants in the original (SIM_DT, the arrival-window
// thresholds, buffer sizes). Grounded on cppla-moto's config/setting.go
// (package-level load-from-file plus an env var override for the path),
// adapted from that file's JSON to github.com/BurntSushi/toml since the
// rest of this corpus's config-shaped repos reach for TOML over JSON for
// hand-edited operator files.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Tunables collects every spec §6 constant plus the transport-level knobs
// this expansion adds. Durations are stored as milliseconds in the TOML
// file (a plain integer is friendlier to hand-edit than Go duration
// strings) and converted on load.
type Tunables struct {
	// SimDTMillis is the fixed simulation timestep, spec's SIM_DT.
	SimDTMillis int `toml:"sim_dt_ms"`

	// InputTooEarlyMillis kicks a client whose newest acked input names a
	// tick this far ahead of id_cur (spec §4.8).
	InputTooEarlyMillis int `toml:"input_too_early_ms"`
	// InputTooLateMillis marks a client timed out once this long passes
	// without a fresh input for id_consensus (spec §4.8, resolved to 3s
	// per DESIGN.md's Open Question decision).
	InputTooLateMillis int `toml:"input_too_late_ms"`

	// NetTimeoutMillis is the transport idle-kill threshold (spec §5).
	NetTimeoutMillis int `toml:"net_timeout_ms"`

	// NetInputSizeLimit rejects an inbound input frame larger than this
	// many bytes (spec §6, INPUT_SIZE_LIMIT).
	NetInputSizeLimit int `toml:"net_input_size_limit"`

	// OffsetBufferSize is the client's clock-calibration ring size (spec
	// §4.9, OFFSET_BUFFER_SIZE).
	OffsetBufferSize int `toml:"offset_buffer_size"`
	// JitterToleranceMillis bounds the calibration ring's max-min spread
	// before a sample average is trusted (spec §4.9, JITTER_TOLERANCE).
	JitterToleranceMillis int `toml:"jitter_tolerance_ms"`
	// OffsetToleranceMillis is the |avg| threshold past which a steady
	// clock recalibrates (spec §4.9, OFFSET_TOLERANCE).
	OffsetToleranceMillis int `toml:"offset_tolerance_ms"`

	// MaxPathDepth is the path-nesting limit (spec §4.2), 128 by default;
	// the 8-bit wire nav-length field could carry up to 255 levels. No code
	// reads this value.
	MaxPathDepth int `toml:"max_path_depth"`

	Transport TransportTunables `toml:"transport"`
}

// TransportTunables mirrors the fields of transport.Config that are worth
// exposing to an operator without recompiling.
type TransportTunables struct {
	Address           string `toml:"address"`
	MaxClients        int    `toml:"max_clients"`
	InputRateLimit    float64 `toml:"input_rate_limit"`
	InputRateBurst    int     `toml:"input_rate_burst"`
	ReconnectGraceSec int     `toml:"reconnect_grace_sec"`
}

// Defaults returns the spec's stated example values (spec §6: SIM_DT
// 1/30s, INPUT_TOO_EARLY 1s, INPUT_TOO_LATE 3s, NET_TIMEOUT 10s,
// NET_INPUT_SIZE_LIMIT 512B, OFFSET_BUFFER_SIZE 20, JITTER_TOLERANCE
// 50ms, OFFSET_TOLERANCE 100ms, max nesting depth 128).
func Defaults() Tunables {
	return Tunables{
		SimDTMillis:           33, // ~1/30s
		InputTooEarlyMillis:   1000,
		InputTooLateMillis:    3000,
		NetTimeoutMillis:      10000,
		NetInputSizeLimit:     512,
		OffsetBufferSize:      20,
		JitterToleranceMillis: 50,
		OffsetToleranceMillis: 100,
		MaxPathDepth:          128,
		Transport: TransportTunables{
			Address:           ":7777",
			MaxClients:        64,
			InputRateLimit:    120,
			InputRateBurst:    30,
			ReconnectGraceSec: 60,
		},
	}
}

// Load reads path as TOML over Defaults(), so a partial file only
// overrides the fields it names. An empty path is not an error: it
// returns Defaults() untouched, matching how a demo cmd/ binary runs
// with no config file at all.
func Load(path string) (Tunables, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Tunables{}, err
	}
	return cfg, nil
}

// LoadFromEnv mirrors cppla-moto's setting.go: the config path can be
// overridden via an environment variable instead of a CLI flag, for
// container deployments that inject config by mounting a file at a
// fixed, env-named location.
func LoadFromEnv(envVar, defaultPath string) (Tunables, error) {
	path := os.Getenv(envVar)
	if path == "" {
		path = defaultPath
	}
	return Load(path)
}

func (t Tunables) SimDT() time.Duration { return time.Duration(t.SimDTMillis) * time.Millisecond }
func (t Tunables) InputTooEarly() time.Duration {
	return time.Duration(t.InputTooEarlyMillis) * time.Millisecond
}
func (t Tunables) InputTooLate() time.Duration {
	return time.Duration(t.InputTooLateMillis) * time.Millisecond
}
func (t Tunables) NetTimeout() time.Duration {
	return time.Duration(t.NetTimeoutMillis) * time.Millisecond
}
func (t Tunables) JitterTolerance() time.Duration {
	return time.Duration(t.JitterToleranceMillis) * time.Millisecond
}
func (t Tunables) OffsetTolerance() time.Duration {
	return time.Duration(t.OffsetToleranceMillis) * time.Millisecond
}
func (t Tunables) ReconnectGrace() time.Duration {
	return time.Duration(t.Transport.ReconnectGraceSec) * time.Second
}
