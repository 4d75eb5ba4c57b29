package monitoring

import (
	"encoding/json"
	"sync"
	"time"
)

// A ProgressBar tracks how many scenarios of a campaign have run.
type ProgressBar struct {
	sync.Mutex
	ID         string
	Name       string
	StartTime  time.Time
	Total      uint64
	Finished   uint64
	Failed     uint64
	InProgress uint64
}

type progressBarState struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	Failed     uint64    `json:"failed"`
	InProgress uint64    `json:"in_progress"`
}

// MarshalJSON encodes the counters as they are at one instant.
func (b *ProgressBar) MarshalJSON() ([]byte, error) {
	b.Lock()
	state := progressBarState{
		ID:         b.ID,
		Name:       b.Name,
		StartTime:  b.StartTime,
		Total:      b.Total,
		Finished:   b.Finished,
		Failed:     b.Failed,
		InProgress: b.InProgress,
	}
	b.Unlock()

	return json.Marshal(state)
}

// IncrementInProgress adds the number of in-progress scenarios.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// MoveInProgressToFinished marks in-progress scenarios as done, counting
// those that did not pass.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64, passed bool) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount

	if !passed {
		b.Failed += amount
	}
}
