package store

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistogramEmpty(t *testing.T) {
	h := NewSizeHistogram()
	assert.Equal(t, SizeSummary{}, h.Summary())
	assert.Equal(t, 0, h.Percentile(50))
}

func TestHistogramPercentiles(t *testing.T) {
	h := NewSizeHistogram()
	for i := 0; i < 99; i++ {
		h.Add(10) // bucket <= 16
	}
	h.Add(5000) // bucket <= 8192

	s := h.Summary()
	assert.EqualValues(t, 100, s.Count)
	assert.EqualValues(t, 99*10+5000, s.Total)
	assert.Equal(t, 16, s.P50, "estimates are bucket upper bounds")
	assert.Equal(t, 16, s.P99)
	assert.Equal(t, 5000, h.Percentile(100), "the largest bucket is capped by the max size")
	assert.Equal(t, 5000, s.Max)
	assert.InDelta(t, 59.9, s.Mean, 0.001)

	assert.Equal(t, 0, h.Percentile(-1))
	assert.Equal(t, 0, h.Percentile(101))
}

func TestHistogramOversized(t *testing.T) {
	h := NewSizeHistogram()
	h.Add(1 << 20)
	assert.Equal(t, 1<<20, h.Percentile(50))
}

func TestHistogramConcurrentAdd(t *testing.T) {
	h := NewSizeHistogram()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				h.Add(i)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 8000, h.Count())
}

func TestTableStats(t *testing.T) {
	table := NewTable()
	assert.Equal(t, 0, Stats(table).Entries)

	for i := 0; i < 10; i++ {
		table.Put([]byte(fmt.Sprintf("key-%02d", i)), bytes.Repeat([]byte{1}, 100*(i+1)))
	}

	stats := Stats(table)
	assert.Equal(t, 10, stats.Entries)
	assert.EqualValues(t, 10, stats.Keys.Count)
	assert.Equal(t, 6, stats.Keys.Max)
	assert.EqualValues(t, 5500, stats.Values.Total)
	assert.Equal(t, 1000, stats.Values.Max)
}
