package instance

import (
	"os"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/env"
)

// ID identifies this process in lock values and logs. It prefers
// CARGOPARTS_INSTANCE_ID, then DYNO, then the hostname.
func ID() string {
	if id := env.Get("CARGOPARTS_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
