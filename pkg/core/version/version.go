// ============================================================================
// condparse - MSBuild-style condition expression parser
// ============================================================================
//
// Package:     version
// Description: Build and protocol version information
// Created:     2026-10-18
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X github.com/msto63/condparse/pkg/core/version.Version=..."
var (
	Version   = "0.1.0"
	Commit    = "dev"
	BuildDate = "unknown"
)

// Protocol versions
const (
	// GRPCService is the fully qualified gRPC service name
	GRPCService = "condparse.v1.ConditionParser"

	// WebSocketProtocol is the subprotocol announced by the live parse endpoint
	WebSocketProtocol = "condparse.v1"
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the version information of the running binary
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a one-line summary
func (i Info) String() string {
	return fmt.Sprintf("condparse %s (%s, %s) %s %s", i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}
