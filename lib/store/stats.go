package store

import (
	"math"
	"sync"
)

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// sizeBoundaries are the upper bounds of the histogram buckets. Entries travel in single
// datagrams, so the range ends at the largest UDP payload.
var sizeBoundaries = []int{
	8, 16, 32, 64, 128, 256, 512, // Bytes
	1024, 2048, 4096, 8192, 16384, 32768, 65507, // KB range up to the largest UDP payload
}

// SizeHistogram tracks the distribution of key or value sizes with exponential buckets.
//
// Thread-safe: All methods are safe for concurrent use
type SizeHistogram struct {
	mutex   sync.RWMutex
	buckets []int64 // one bucket per boundary plus one for larger sizes
	count   int64
	sum     int64
	max     int
}

// NewSizeHistogram creates an empty histogram
func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{
		buckets: make([]int64, len(sizeBoundaries)+1),
	}
}

// Add records a size
func (h *SizeHistogram) Add(size int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	idx := len(sizeBoundaries)
	for i, boundary := range sizeBoundaries {
		if size <= boundary {
			idx = i
			break
		}
	}

	h.buckets[idx]++
	h.count++
	h.sum += int64(size)
	h.max = max(h.max, size)
}

// Count returns the number of recorded sizes
func (h *SizeHistogram) Count() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.count
}

// Sum returns the total of all recorded sizes
func (h *SizeHistogram) Sum() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.sum
}

// Percentile estimates the given percentile (0-100). The estimate is the upper bound of
// the bucket the percentile falls into, capped by the largest recorded size.
func (h *SizeHistogram) Percentile(percentile int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	target := int64(math.Ceil(float64(h.count) * float64(percentile) / 100.0))
	var cumulative int64
	for i, count := range h.buckets {
		cumulative += count
		if cumulative >= target && cumulative > 0 {
			if i < len(sizeBoundaries) {
				return min(sizeBoundaries[i], h.max)
			}
			return h.max
		}
	}
	return h.max
}

// Summary returns the statistics reported by the admin api
func (h *SizeHistogram) Summary() SizeSummary {
	s := SizeSummary{
		Count: h.Count(),
		Total: h.Sum(),
		P50:   h.Percentile(50),
		P99:   h.Percentile(99),
	}
	h.mutex.RLock()
	s.Max = h.max
	h.mutex.RUnlock()
	if s.Count > 0 {
		s.Mean = float64(s.Total) / float64(s.Count)
	}
	return s
}

// SizeSummary is a point in time summary of a SizeHistogram
type SizeSummary struct {
	Count int64   `json:"count"`
	Total int64   `json:"total_bytes"`
	Mean  float64 `json:"mean"`
	P50   int     `json:"p50"`
	P99   int     `json:"p99"`
	Max   int     `json:"max"`
}

// ----------------------------------------------------------------------------
// Table statistics
// ----------------------------------------------------------------------------

// TableStats summarizes the key and value sizes of a table
type TableStats struct {
	Entries int         `json:"entries"`
	Keys    SizeSummary `json:"keys"`
	Values  SizeSummary `json:"values"`
}

// Stats scans the table once and returns its size statistics
func Stats(t ITable) TableStats {
	keys, values := NewSizeHistogram(), NewSizeHistogram()
	t.Range(func(key, value []byte) bool {
		keys.Add(len(key))
		values.Add(len(value))
		return true
	})
	return TableStats{
		Entries: int(keys.Count()),
		Keys:    keys.Summary(),
		Values:  values.Summary(),
	}
}
