package game

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"that-night/internal/logger"
)

const (
	eventQueueSize     = 4096
	eventFlushInterval = 250 * time.Millisecond

	// Non-tick events per second, shared and per type. A chained bomb can
	// kill hundreds of enemies in one tick.
	eventRate     = 2000
	eventTypeRate = 400
)

// EventLog appends events to an NDJSON file from a background writer.
// Append never blocks the tick; when the queue is full the event is
// dropped and counted. Tick events skip the rate limits, so only a full
// queue can lose a seed, and ReadRun reports such a gap.
type EventLog struct {
	queue   chan Event
	limiter *rate.Limiter
	perType [eventTypeCount]*rate.Limiter

	path string
	file *os.File
	out  *bufio.Writer

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
	stop    sync.Once

	seq     atomic.Uint64
	written atomic.Uint64
	dropped atomic.Uint64
}

// NewEventLog creates a stopped log; Append is a no-op until Start.
func NewEventLog() *EventLog {
	el := &EventLog{
		queue:   make(chan Event, eventQueueSize),
		limiter: rate.NewLimiter(eventRate, eventRate/4),
		done:    make(chan struct{}),
	}
	for i := range el.perType {
		el.perType[i] = rate.NewLimiter(eventTypeRate, eventTypeRate/4)
	}
	return el
}

// Start opens path for append and starts the writer.
func (el *EventLog) Start(path string) error {
	if el.running.Load() {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	el.path = path
	el.file = f
	el.out = bufio.NewWriter(f)

	el.running.Store(true)
	el.wg.Add(1)
	go el.writer()
	return nil
}

// Stop drains what is queued, flushes and closes the file.
func (el *EventLog) Stop() {
	if !el.running.Load() {
		return
	}
	el.stop.Do(func() {
		el.running.Store(false)
		close(el.done)
		el.wg.Wait()
		if err := el.file.Close(); err != nil {
			logger.Log.WithError(err).WithField("path", el.path).Warn("closing event log failed")
		}
	})
}

// Append queues one event for tick of run. It reports whether the event
// was accepted.
func (el *EventLog) Append(t EventType, tick int, runID string, payload interface{}) bool {
	if !el.running.Load() {
		return false
	}
	if t != EventTypeTick && (!el.limiter.Allow() || !el.perType[t%eventTypeCount].Allow()) {
		el.dropped.Add(1)
		return false
	}

	ev := Event{
		Version:  EventVersion,
		Sequence: el.seq.Add(1),
		Type:     t,
		Tick:     tick,
		RunID:    runID,
		Time:     time.Now().UnixNano(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			el.dropped.Add(1)
			return false
		}
		ev.Payload = data
	}

	select {
	case el.queue <- ev:
		return true
	default:
		el.dropped.Add(1)
		return false
	}
}

func (el *EventLog) writer() {
	defer el.wg.Done()
	ticker := time.NewTicker(eventFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-el.queue:
			el.write(ev)
		case <-ticker.C:
			el.flush()
		case <-el.done:
			for {
				select {
				case ev := <-el.queue:
					el.write(ev)
				default:
					el.flush()
					return
				}
			}
		}
	}
}

func (el *EventLog) write(ev Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		el.dropped.Add(1)
		return
	}
	el.out.Write(line)
	el.out.WriteByte('\n')
	el.written.Add(1)
}

func (el *EventLog) flush() {
	if err := el.out.Flush(); err != nil {
		logger.Log.WithError(err).WithField("path", el.path).Warn("event log write failed")
	}
}

// GetStats returns counters for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"written": el.written.Load(),
		"dropped": el.dropped.Load(),
		"pending": len(el.queue),
		"running": el.running.Load(),
	}
}

// Dropped returns how many events never reached the file.
func (el *EventLog) Dropped() uint64 {
	return el.dropped.Load()
}

// RunLog is what an event log holds about one run.
type RunLog struct {
	Start     RunStartPayload
	FirstTick int     // tick of Seeds[0]; later than 0 when logging began mid-run
	Seeds     []int64 // rng seed of every tick from FirstTick on
	Kills     int
	Death     *DeathPayload
	Events    int
}

// ReadRun collects the events of runID from an NDJSON log. Lines of other
// runs are skipped. A malformed line is ErrBadEventLog and a missing tick
// is ErrTickGap.
func ReadRun(r io.Reader, runID string) (RunLog, error) {
	var out RunLog
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lastTick := -1
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return out, fmt.Errorf("%w: line %d: %v", ErrBadEventLog, line, err)
		}
		if ev.RunID != runID {
			continue
		}
		out.Events++

		switch ev.Type {
		case EventTypeRunStart:
			if err := json.Unmarshal(ev.Payload, &out.Start); err != nil {
				return out, fmt.Errorf("%w: line %d: %v", ErrBadEventLog, line, err)
			}
		case EventTypeTick:
			var p TickPayload
			if err := json.Unmarshal(ev.Payload, &p); err != nil {
				return out, fmt.Errorf("%w: line %d: %v", ErrBadEventLog, line, err)
			}
			switch {
			case lastTick < 0:
				out.FirstTick = ev.Tick
			case ev.Tick <= lastTick:
				return out, fmt.Errorf("%w: line %d: tick %d after %d", ErrBadEventLog, line, ev.Tick, lastTick)
			case ev.Tick != lastTick+1:
				return out, fmt.Errorf("%w: line %d: tick %d after %d", ErrTickGap, line, ev.Tick, lastTick)
			}
			lastTick = ev.Tick
			out.Seeds = append(out.Seeds, p.RNGSeed)
		case EventTypeKill:
			out.Kills++
		case EventTypeDeath:
			var p DeathPayload
			if err := json.Unmarshal(ev.Payload, &p); err != nil {
				return out, fmt.Errorf("%w: line %d: %v", ErrBadEventLog, line, err)
			}
			out.Death = &p
		}
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("reading event log: %w", err)
	}
	if out.Events == 0 {
		return out, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return out, nil
}
