package policy

// Policy defines the interface for checking if eviction is needed.
type Policy interface {
	// BytesToFree returns the number of bytes that should be evicted given
	// the total bytes currently occupied by the sink's backing files.
	// Returns 0 if no eviction is needed. The manager reclaims at most the
	// eligible (unprotected, closed) bytes, whatever the policy asks for.
	BytesToFree(totalBytes int64) (int64, error)
}
