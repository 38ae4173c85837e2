package dbhost

import (
	"path/filepath"
	"strings"
)

const (
	// localPrefix marks a target as a local file resolved against the
	// configured base path. The prefix is optional.
	localPrefix = "sqlite:"
	// memoryTarget is the sentinel for an ephemeral in-memory database. It
	// bypasses path containment entirely.
	memoryTarget = ":memory:"
)

// remoteSchemes are target prefixes that denote a non-local endpoint. Such
// targets are never joined against the base path; they are handed to the
// engine as-is.
var remoteSchemes = []string{"libsql://", "https://", "http://", "wss://", "ws://"}

// IsRemoteTarget reports whether target names a remote endpoint rather than a
// local file.
func IsRemoteTarget(target string) bool {
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(target, scheme) {
			return true
		}
	}
	return false
}

// IsMemoryTarget reports whether target (after stripping the local prefix)
// is the in-memory sentinel.
func IsMemoryTarget(target string) bool {
	return strings.TrimPrefix(target, localPrefix) == memoryTarget
}

// ResolveLocalPath turns a caller-supplied local target into an absolute path
// guaranteed to lie within basePath. Parent-directory segments are collapsed
// against preceding segments during cleaning; if the cleaned result no longer
// lies under basePath the target is rejected before any file is opened.
//
// The in-memory sentinel is returned unchanged. Absolute targets bypass
// containment and are rejected unless allowAbsolute is set.
func ResolveLocalPath(target, basePath string, allowAbsolute bool) (string, error) {
	dbPath := strings.TrimPrefix(target, localPrefix)

	if dbPath == memoryTarget {
		return memoryTarget, nil
	}

	if filepath.IsAbs(dbPath) {
		if !allowAbsolute {
			return "", NewError(KindInvalidDBURL, "absolute path %q is not permitted", dbPath)
		}
		return filepath.Clean(dbPath), nil
	}

	joined := filepath.Clean(filepath.Join(basePath, dbPath))

	base := filepath.Clean(basePath)
	if joined != base && !strings.HasPrefix(joined, base+string(filepath.Separator)) {
		return "", NewError(KindInvalidDBURL, "path %q escapes the base directory", dbPath)
	}

	return joined, nil
}
