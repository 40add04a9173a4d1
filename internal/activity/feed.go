package activity

import (
	"strconv"
	"sync"
	"time"
)

const (
	defaultMax    = 200
	defaultWindow = 10 * time.Minute
)

// Event is one live-feed entry: a song add, a vote, a battle moment.
type Event struct {
	EventID  string `json:"event_id"`
	Kind     string `json:"kind"`
	Actor    string `json:"actor,omitempty"`
	SongID   string `json:"song_id,omitempty"`
	SongName string `json:"song_name,omitempty"`
	ServerTS int64  `json:"server_ts"`
}

// Feed is a bounded, time-windowed append log with live watchers. Delivery
// to watchers is best effort; a slow consumer drops events rather than
// blocking the writer.
type Feed struct {
	mu       sync.Mutex
	nextID   int64
	max      int
	window   time.Duration
	events   []Event
	watchers map[chan Event]struct{}
	closed   bool

	now func() time.Time
}

func NewFeed(max int, window time.Duration) *Feed {
	if max <= 0 {
		max = defaultMax
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Feed{
		max:      max,
		window:   window,
		watchers: map[chan Event]struct{}{},
		now:      time.Now,
	}
}

func (f *Feed) Append(kind, actor, songID, songName string) Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Event{}
	}
	f.nextID++
	ev := Event{
		EventID:  strconv.FormatInt(f.nextID, 10),
		Kind:     kind,
		Actor:    actor,
		SongID:   songID,
		SongName: songName,
		ServerTS: f.now().UnixMilli(),
	}
	f.events = append(f.events, ev)
	f.trimLocked()
	for ch := range f.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Recent returns the events still inside the window, oldest first.
func (f *Feed) Recent() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trimLocked()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

// ReplayAfter returns events newer than lastEventID, for SSE reconnects.
func (f *Feed) ReplayAfter(lastEventID string) []Event {
	last, err := strconv.ParseInt(lastEventID, 10, 64)
	if lastEventID == "" || err != nil {
		return f.Recent()
	}
	var out []Event
	for _, ev := range f.Recent() {
		id, _ := strconv.ParseInt(ev.EventID, 10, 64)
		if id > last {
			out = append(out, ev)
		}
	}
	return out
}

func (f *Feed) Subscribe() chan Event {
	ch := make(chan Event, 32)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch
	}
	f.watchers[ch] = struct{}{}
	return ch
}

func (f *Feed) Unsubscribe(ch chan Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.watchers[ch]; ok {
		delete(f.watchers, ch)
		close(ch)
	}
}

// Reset drops all buffered events but keeps watchers attached.
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.watchers {
		close(ch)
		delete(f.watchers, ch)
	}
}

func (f *Feed) trimLocked() {
	if len(f.events) > f.max {
		f.events = f.events[len(f.events)-f.max:]
	}
	cutoff := f.now().Add(-f.window).UnixMilli()
	i := 0
	for i < len(f.events) && f.events[i].ServerTS < cutoff {
		i++
	}
	if i > 0 {
		f.events = f.events[i:]
	}
}
