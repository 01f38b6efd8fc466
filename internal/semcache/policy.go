package semcache

import "time"

// Policy decides which records survive an insert. The cache consults
// it after appending; lookup semantics are never affected by a policy.
type Policy interface {
	Prune(now time.Time, records []Record) []Record
}

type ttlPolicy struct {
	ttl time.Duration
}

// TTL drops records older than d on insert.
func TTL(d time.Duration) Policy {
	return ttlPolicy{ttl: d}
}

func (p ttlPolicy) Prune(now time.Time, records []Record) []Record {
	cutoff := now.Add(-p.ttl)
	// Records are insertion-ordered, so everything before the first
	// fresh record is expired.
	for i, rec := range records {
		if rec.CreatedAt.After(cutoff) {
			return records[i:]
		}
	}
	return records[:0]
}

type maxEntriesPolicy struct {
	limit int
}

// MaxEntries keeps only the newest limit records.
func MaxEntries(limit int) Policy {
	return maxEntriesPolicy{limit: limit}
}

func (p maxEntriesPolicy) Prune(now time.Time, records []Record) []Record {
	if p.limit <= 0 || len(records) <= p.limit {
		return records
	}
	return records[len(records)-p.limit:]
}

type chainPolicy struct {
	policies []Policy
}

// Chain applies policies in order.
func Chain(policies ...Policy) Policy {
	return chainPolicy{policies: policies}
}

func (p chainPolicy) Prune(now time.Time, records []Record) []Record {
	for _, policy := range p.policies {
		records = policy.Prune(now, records)
	}
	return records
}
