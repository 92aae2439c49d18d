package sqlitevec

import "strings"

// Collection files are opened by the indexer and the query path at the same
// time, so the DSN always carries WAL journaling and a busy timeout.
const dsnPragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// collectionDSN turns a collection file path into a sqlite DSN with the
// pragmas the store relies on. Explicit DSNs with their own pragmas pass
// through untouched.
func collectionDSN(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}
	if strings.Contains(strings.ToLower(path), "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + dsnPragmas
}
