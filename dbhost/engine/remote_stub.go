//go:build !remote

package engine

// HasRemote reports whether pure-remote connections are available in this
// build.
func HasRemote() bool { return false }

// OpenRemote always fails in builds without the remote tag.
func OpenRemote(target, authToken string) (Database, error) {
	return nil, ErrRemoteNotSupported
}
