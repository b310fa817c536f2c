package storage

import "github.com/rohittcodes/flashio-sub001/internal/models"

// DefaultInlineThreshold keeps small, frequently edited files in the
// relational row; larger assets go to the blob store.
const DefaultInlineThreshold = 100 * 1024 // 100 KiB

// Policy decides the storage tier for file content. Directories carry no
// content and are never run through the policy.
type Policy struct {
	InlineThreshold int64
}

// NewPolicy returns a policy with the given threshold, falling back to the
// default when threshold is zero or negative.
func NewPolicy(threshold int64) Policy {
	if threshold <= 0 {
		threshold = DefaultInlineThreshold
	}
	return Policy{InlineThreshold: threshold}
}

// Decide returns the tier for content of the given size. Pure and
// deterministic: size at or under the threshold stays inline.
func (p Policy) Decide(size int64) models.StorageTier {
	if size <= p.InlineThreshold {
		return models.TierInline
	}
	return models.TierBlob
}
