//go:build !((linux || darwin || freebsd) && cgo)

package ext

// openPlugin is not available without cgo or on unsupported platforms
func openPlugin(path, checksum string) (Extension, error) {
	if err := verifyChecksum(path, checksum); err != nil {
		return nil, err
	}
	return nil, ErrPluginsUnsupported
}
