package cache

// Stats is a snapshot of cache counters.
// Counters are cumulative for the lifetime of the cache; TotalSize mirrors the
// current number of stored entries.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Sets      uint64 `json:"sets"`
	Deletes   uint64 `json:"deletes"`
	Evictions uint64 `json:"evictions"`
	TotalSize int    `json:"total_size"`
}

// HitRatio returns hits / (hits + misses), or 0 when nothing has been read.
func (s Stats) HitRatio() float64 {
	reads := s.Hits + s.Misses
	if reads == 0 {
		return 0
	}
	return float64(s.Hits) / float64(reads)
}

// Health is a coarse label derived from the hit ratio.
type Health string

const (
	HealthGood Health = "good"
	HealthFair Health = "fair"
	HealthPoor Health = "poor"
)

// HealthFromRatio maps a hit ratio to a Health label:
// good above 0.8, fair above 0.6, poor otherwise.
func HealthFromRatio(ratio float64) Health {
	switch {
	case ratio > 0.8:
		return HealthGood
	case ratio > 0.6:
		return HealthFair
	default:
		return HealthPoor
	}
}

// HealthMetrics summarises cache state for dashboards and health endpoints.
type HealthMetrics struct {
	Stats
	HitRatio float64 `json:"hit_ratio"`
	Size     int     `json:"size"`
	Health   Health  `json:"health"`
}

// Stats returns a copy of the current counters.
// When statistics are disabled every counter, including TotalSize, stays zero.
func (c *Memory[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	if c.enableStats {
		s.TotalSize = len(c.items)
	}
	return s
}

// HitRatio returns hits / (hits + misses), or 0 when nothing has been read.
func (c *Memory[V]) HitRatio() float64 {
	return c.Stats().HitRatio()
}

// HealthMetrics returns the counters together with the hit ratio, the current
// entry count and a health label.
func (c *Memory[V]) HealthMetrics() HealthMetrics {
	s := c.Stats()
	ratio := s.HitRatio()
	return HealthMetrics{
		Stats:    s,
		HitRatio: ratio,
		Size:     c.Len(),
		Health:   HealthFromRatio(ratio),
	}
}
