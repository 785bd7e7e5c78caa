package version

import (
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// semverRegex validates semantic versioning format
var semverRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

func TestVersion_Semver(t *testing.T) {
	if !semverRegex.MatchString(Version) {
		t.Errorf("Version %q is not semantic versioning", Version)
	}
}

func TestGet(t *testing.T) {
	info := Get()

	if info.Version != Version {
		t.Errorf("Version = %v, want %v", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %v, want %v", info.GoVersion, runtime.Version())
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("Platform = %v, want os/arch", info.Platform)
	}
	if !strings.HasPrefix(info.String(), "condparse "+Version) {
		t.Errorf("String() = %v", info.String())
	}
}

func TestProtocolNames(t *testing.T) {
	if !strings.HasPrefix(GRPCService, "condparse.v1.") {
		t.Errorf("GRPCService = %v", GRPCService)
	}
	if WebSocketProtocol == "" {
		t.Error("WebSocketProtocol is empty")
	}
}
