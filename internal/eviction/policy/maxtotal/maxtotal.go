package maxtotal

// Policy triggers eviction when the backing files exceed a fixed byte
// budget.
type Policy struct {
	CapBytes int64
}

func (m *Policy) BytesToFree(totalBytes int64) (int64, error) {
	if totalBytes > m.CapBytes {
		return totalBytes - m.CapBytes, nil
	}
	return 0, nil
}
