//go:build (linux || darwin || freebsd) && cgo

package ext

import (
	"fmt"
	"plugin"
)

// openPlugin verifies and opens a Go plugin and returns its exported extension
func openPlugin(path, checksum string) (Extension, error) {
	if err := verifyChecksum(path, checksum); err != nil {
		return nil, err
	}

	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plugin: %w", err)
	}

	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup symbol: %w", err)
	}

	return asExtension(sym)
}
