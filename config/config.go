
// Package config holds the core's fixed protocol constants and the small set
// of operator-settable fields, loadable from CLI flags and optionally
// overridden by a JSON file.
package config

import (
	"encoding/json"
	"os"
)

const (
	// BlockSize is the fixed unit of file I/O and stream payload.
	BlockSize = 65536
	// SocketBuffer is the default socket read/write buffer size.
	SocketBuffer = 131072
	// BroadcastInterval is the period between discovery broadcasts.
	BroadcastInterval = 2000 // milliseconds
	// Port is the default TCP control/session port.
	Port = 52123
	// BroadcastPort is the UDP discovery port.
	BroadcastPort = 52913
	// MetadataDirName is the subfolder holding sidecar files.
	MetadataDirName = ".transfers_in_progress"
)

// Config is the set of knobs an operator can set; everything else in
// SPEC_FULL.md is a compile-time constant above.
type Config struct {
	RootDir        string `json:"rootdir"`
	Password       string `json:"password"`
	Port           int    `json:"port"`
	BroadcastPort  int    `json:"broadcastport"`
	BroadcastEvery int    `json:"broadcastintervalms"`
	Compress       bool   `json:"compress"`
	Log            string `json:"log"`
	Quiet          bool   `json:"quiet"`
}

// Default returns a Config populated with the protocol's fixed defaults.
func Default() Config {
	return Config{
		Port:           Port,
		BroadcastPort:  BroadcastPort,
		BroadcastEvery: BroadcastInterval,
	}
}

// ParseJSON overrides cfg's fields from a JSON file, mirroring kcptun's
// parseJSONConfig: CLI flags are collected first, then this is applied on
// top when "-c" names a file.
func ParseJSON(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cfg)
}
