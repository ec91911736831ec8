package store

import "context"

// Usage is the size/quota view of one flat namespace.
type Usage struct {
	Namespace string `json:"namespace"`
	Bytes     int    `json:"bytes"`
	Quota     int    `json:"quota"` // 0 = unlimited
	Enabled   bool   `json:"enabled"`
	Revision  int64  `json:"revision"`
}

// Unlimited reports whether the namespace has no quota.
func (u Usage) Unlimited() bool {
	return u.Quota == 0
}

// Remaining returns the bytes left before the quota is hit.
// Returns -1 when unlimited and 0 when already over.
func (u Usage) Remaining() int {
	if u.Unlimited() {
		return -1
	}
	return max(u.Quota-u.Bytes, 0)
}

// UsageReporter is implemented by flat adapters that can report their size.
type UsageReporter interface {
	Usage(ctx context.Context) (Usage, error)
}

var (
	_ UsageReporter = (*Flat)(nil)
	_ UsageReporter = (*Memory)(nil)
)
