package timing

import (
	"context"
	"sort"
	"sync"
	"time"
)

type timingKey struct{}

type TimingInfo struct {
	Operation string
	StartTime time.Time
}

// Summary aggregates every recorded duration of one operation.
type Summary struct {
	Operation string
	Count     int
	Total     time.Duration
	Min       time.Duration
	Max       time.Duration
}

func (s Summary) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

type Tracker struct {
	timings map[string][]time.Duration
	mu      sync.RWMutex
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		timings: make(map[string][]time.Duration),
		now:     time.Now,
	}
}

func (tt *Tracker) StartTiming(operation string) context.Context {
	return context.WithValue(context.Background(), timingKey{}, TimingInfo{
		Operation: operation,
		StartTime: tt.now(),
	})
}

func (tt *Tracker) EndTiming(ctx context.Context) {
	if ctx == nil {
		return
	}

	timingInfo, ok := ctx.Value(timingKey{}).(TimingInfo)
	if !ok {
		return
	}

	tt.Record(timingInfo.Operation, tt.now().Sub(timingInfo.StartTime))
}

// Record adds an externally measured duration.
func (tt *Tracker) Record(operation string, d time.Duration) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.timings[operation] = append(tt.timings[operation], d)
}

// Summaries returns one entry per operation, sorted by name.
func (tt *Tracker) Summaries() []Summary {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	result := make([]Summary, 0, len(tt.timings))
	for operation, timings := range tt.timings {
		if len(timings) == 0 {
			continue
		}

		s := Summary{Operation: operation, Count: len(timings), Min: timings[0], Max: timings[0]}
		for _, d := range timings {
			s.Total += d
			if d < s.Min {
				s.Min = d
			}
			if d > s.Max {
				s.Max = d
			}
		}
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Operation < result[j].Operation })
	return result
}
