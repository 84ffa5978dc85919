package events

import (
	"sync"

	"go.uber.org/zap"
)

// Sink receives records in emission order. Implementations must not block
// for long: the feed fans out synchronously so stream order is preserved
// across sinks. A sink error is logged and swallowed, never surfaced to the
// operation that produced the record.
type Sink interface {
	Publish(rec Record) error
}

// Feed is the ordered, append-only record stream. Every record is retained
// so late consumers can replay the full history.
type Feed struct {
	log *zap.SugaredLogger

	mu      sync.Mutex
	seq     uint64
	history []Record
	sinks   []Sink
}

// NewFeed creates a feed. A nil logger disables sink-error logging.
func NewFeed(log *zap.SugaredLogger) *Feed {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Feed{log: log}
}

// Attach adds a sink. Records emitted before the attach are not redelivered;
// use Replay to catch up first.
func (f *Feed) Attach(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Emit appends a record and fans it out. Called by the exchange inside its
// serialization point, so sequence numbers follow execution order.
func (f *Feed) Emit(t Type, data any) Record {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	rec := Record{Seq: f.seq, Type: t, Data: data}
	f.history = append(f.history, rec)

	for _, s := range f.sinks {
		if err := s.Publish(rec); err != nil {
			f.log.Warnw("event_sink_failed", "seq", rec.Seq, "type", rec.Type, "err", err)
		}
	}
	return rec
}

// Replay returns a copy of the full history in emission order.
func (f *Feed) Replay() []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Record, len(f.history))
	copy(out, f.history)
	return out
}

// Len returns the number of records emitted so far.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.history)
}

// LogSink writes every record to the structured log.
type LogSink struct {
	Log *zap.SugaredLogger
}

func (s LogSink) Publish(rec Record) error {
	s.Log.Infow("exchange_event", "seq", rec.Seq, "type", rec.Type, "data", rec.Data)
	return nil
}
