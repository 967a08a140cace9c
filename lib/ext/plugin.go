package ext

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/zeebo/blake3"
)

// PluginSymbol is the name of the symbol a plugin must export.
const PluginSymbol = "Extension"

var (
	// ErrChecksumMismatch is returned when a plugin file does not match its expected checksum
	ErrChecksumMismatch = errors.New("plugin checksum mismatch")
	// ErrPluginsUnsupported is returned on platforms without support for Go plugins
	ErrPluginsUnsupported = errors.New("go plugins are not supported on this platform")
)

// ComputeChecksum returns the hex encoded BLAKE3 checksum of a file.
func ComputeChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// verifyChecksum compares the checksum of a file with the expected one.
// An empty expected checksum disables the check.
func verifyChecksum(path, expected string) error {
	if expected == "" {
		return nil
	}
	actual, err := ComputeChecksum(path)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w for %s: expected %s, got %s", ErrChecksumMismatch, path, expected, actual)
	}
	return nil
}

// asExtension converts a looked up plugin symbol into an Extension.
// Plugins may export either a variable of an Extension type or a func(DB, []byte) error.
func asExtension(sym any) (Extension, error) {
	switch v := sym.(type) {
	case *Extension:
		if *v == nil {
			return nil, fmt.Errorf("symbol %s is nil", PluginSymbol)
		}
		return *v, nil
	case Extension:
		return v, nil
	case func(DB, []byte) error:
		return ExtensionFunc(v), nil
	case *func(DB, []byte) error:
		return ExtensionFunc(*v), nil
	default:
		return nil, fmt.Errorf("symbol %s has unsupported type %T", PluginSymbol, sym)
	}
}
