package timectrl

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/constellation-scheduler/model"
)

// HoursToTime maps a schedule time in hours onto the wall-clock axis that
// starts at epoch.
func HoursToTime(epoch time.Time, hours float64) time.Time {
	return epoch.Add(time.Duration(hours * float64(time.Hour)))
}

// ReplayEvent is one plan entry reached by the replay clock.
type ReplayEvent struct {
	SatelliteID string
	Entry       model.PlanEntry
	At          time.Time
}

// PlanEvents flattens a schedule into events ordered by start time, then
// satellite ID, keeping plan order for ties within a satellite.
func PlanEvents(epoch time.Time, schedule model.Schedule) []ReplayEvent {
	var events []ReplayEvent
	for _, satID := range schedule.SatelliteIDs() {
		for _, e := range schedule[satID] {
			events = append(events, ReplayEvent{
				SatelliteID: satID,
				Entry:       e,
				At:          HoursToTime(epoch, e.StartTime),
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].At.Equal(events[j].At) {
			return events[i].At.Before(events[j].At)
		}
		return events[i].SatelliteID < events[j].SatelliteID
	})
	return events
}

// Replayer emits plan events as a TimeController passes their start times.
type Replayer struct {
	mu     sync.Mutex
	events []ReplayEvent
	next   int
	emit   func(ReplayEvent)
}

// NewReplayer prepares the events of schedule relative to epoch.
func NewReplayer(epoch time.Time, schedule model.Schedule, emit func(ReplayEvent)) *Replayer {
	return &Replayer{events: PlanEvents(epoch, schedule), emit: emit}
}

// OnTick emits every pending event whose start is at or before now. It is
// meant to be registered with TimeController.AddListener.
func (r *Replayer) OnTick(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.next < len(r.events) && !r.events[r.next].At.After(now) {
		if r.emit != nil {
			r.emit(r.events[r.next])
		}
		r.next++
	}
}

// Remaining returns the number of events not yet emitted.
func (r *Replayer) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events) - r.next
}

// Horizon is the simulated time needed to reach the last event.
func (r *Replayer) Horizon(epoch time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return 0
	}
	return r.events[len(r.events)-1].At.Sub(epoch)
}

// Replay runs an accelerated controller from epoch until every entry of
// schedule has been emitted or ctx is done.
func Replay(ctx context.Context, epoch time.Time, schedule model.Schedule, tick time.Duration, emit func(ReplayEvent)) error {
	if tick <= 0 {
		return fmt.Errorf("replay tick must be positive, got %s", tick)
	}
	r := NewReplayer(epoch, schedule, emit)
	r.OnTick(epoch)
	if r.Remaining() == 0 {
		return nil
	}

	tc := NewTimeController(epoch, tick, Accelerated)
	tc.AddListener(r.OnTick)

	// One extra tick covers a horizon that is not a multiple of tick.
	<-tc.Start(ctx, r.Horizon(epoch)+tick)

	if err := ctx.Err(); err != nil {
		return err
	}
	if n := r.Remaining(); n > 0 {
		return fmt.Errorf("replay finished with %d events pending", n)
	}
	return nil
}
