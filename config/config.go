// Package config is the JSON-backed daemon configuration of SPEC_FULL.md
// §10.2: listen address, liveness tick timeout, read rate, clock mode and
// parameters, model root path, install args and per-plane init defaults,
// plus the log package's filter/dir/file settings.
//
// Grounded on _examples/mmp-vice/cmd/vice/config.go's Config/Encode/
// Decode/Save shape (plain JSON marshal/unmarshal of a struct tree, no
// separate schema layer), trimmed to this daemon's much smaller surface.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ClockMode selects the virtual clock implementation (spec.md §4.6).
type ClockMode string

const (
	ClockRealtime  ClockMode = "realtime"
	ClockFixedStep ClockMode = "fixed_step"
)

// ClockConfig configures whichever clock.Clock the core instantiates.
type ClockConfig struct {
	Mode  ClockMode     `json:"mode"`
	Scale float64       `json:"scale"`
	Delta time.Duration `json:"delta,omitempty"` // FixedStep only
}

// PlaneDefaults seeds a PushPlane call that omits an explicit InitCfg
// (SPEC_FULL.md §12: condition selector, scripted deflection, Nelder-Mead
// overrides).
type PlaneDefaults struct {
	Altitude    float64    `json:"altitude"`
	Velocity    float64    `json:"velocity"`
	Condition   string     `json:"condition"` // wings_level | turning | pull_up | roll
	Deflection  [3]float64 `json:"deflection"`
	MaxFunEvals int        `json:"max_fun_evals"`
	MaxIter     int        `json:"max_iter"`
	TolFun      float64    `json:"tol_fun"`
	TolX        float64    `json:"tol_x"`
}

// LogConfig mirrors mmp-vice's log package's construction parameters.
type LogConfig struct {
	Level string `json:"level"` // debug | info | warn | error
	Dir   string `json:"dir"`
	File  string `json:"file"`
}

// Config is the top-level daemon configuration, deserialised from a single
// JSON file at startup (spec.md §6).
type Config struct {
	ListenAddr   string        `json:"listen_addr"`
	TickTimeout  time.Duration `json:"tick_timeout"`
	ReadRate     time.Duration `json:"read_rate"`
	Clock        ClockConfig   `json:"clock"`
	ModelRoot    string        `json:"model_root"`
	InstallArgs  []string      `json:"install_args"`
	PlaneDefault PlaneDefaults `json:"plane_default"`
	Log          LogConfig     `json:"log"`
	TrimCacheSize int          `json:"trim_cache_size"`
	Compress      bool         `json:"compress"` // wrap accepted connections in zstd framing
}

// Default returns the configuration used when no file is supplied,
// matching spec.md §6's stated defaults.
func Default() Config {
	return Config{
		ListenAddr:  ":8942",
		TickTimeout: 5 * time.Second,
		ReadRate:    50 * time.Millisecond,
		Clock: ClockConfig{
			Mode:  ClockRealtime,
			Scale: 1.0,
		},
		ModelRoot:   "./models",
		InstallArgs: nil,
		PlaneDefault: PlaneDefaults{
			Altitude:    15000,
			Velocity:    500,
			Condition:   "wings_level",
			MaxFunEvals: 50000,
			MaxIter:     10000,
			TolFun:      1e-6,
			TolX:        1e-6,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   ".",
			File:  "fly-ruler.log",
		},
		TrimCacheSize: 256,
		Compress:      false,
	}
}

// Load reads and decodes a Config from path, filling any field absent from
// the file with Default()'s value.
func Load(path string) (Config, error) {
	c := Default()
	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("fly-ruler: opening config %s: %w", path, err)
	}
	defer f.Close()
	if err := Decode(f, &c); err != nil {
		return c, fmt.Errorf("fly-ruler: decoding config %s: %w", path, err)
	}
	return c, nil
}

// Decode merges JSON from r onto c in place.
func Decode(r io.Reader, c *Config) error {
	dec := json.NewDecoder(r)
	return dec.Decode(c)
}

// Encode writes c as indented JSON.
func (c *Config) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(c)
}

// Save writes c to path as indented JSON, creating the file if absent.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fly-ruler: creating config %s: %w", path, err)
	}
	defer f.Close()
	return c.Encode(f)
}
