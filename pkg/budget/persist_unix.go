//go:build unix

package budget

import "golang.org/x/sys/unix"

// chmodPersisted enforces 0600 permissions explicitly, since the
// process umask can otherwise widen os.WriteFile's requested mode.
func chmodPersisted(path string) error {
	return unix.Chmod(path, 0o600)
}
