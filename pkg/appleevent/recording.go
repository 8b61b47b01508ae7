package appleevent

import (
	"bytes"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// RecordedEvent is one entry in a Recorder's circular log.
type RecordedEvent struct {
	Timestamp uint64
	Target    string // process serial number / address string, informational
	Class     Keyword
	ID        Keyword
	Params    []RecordedParam
	Reply     *RecordedEvent
}

// RecordedParam is a flattened (keyword, type, raw bytes) triple
// captured for an event's parameter record.
type RecordedParam struct {
	Keyword Keyword
	Type    Type
	Raw     []byte
}

// Recorder is a bounded circular log of dispatched AppleEvents. It
// never grows past capacity: the oldest entry is evicted to make room
// for the newest.
type Recorder struct {
	mu       sync.Mutex
	capacity int
	entries  []RecordedEvent
	next     int
	full     bool

	sessionID string
	db        *badger.DB
}

// NewRecorder constructs a Recorder with the given bounded capacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 1
	}
	return &Recorder{
		capacity:  capacity,
		entries:   make([]RecordedEvent, capacity),
		sessionID: uuid.NewString(),
	}
}

// AttachStore opens (or reuses) a badger database at dir for
// persisting recording sessions across process restarts.
func (r *Recorder) AttachStore(dir string) error {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("appleevent: open recording store: %w", err)
	}
	r.mu.Lock()
	r.db = db
	r.mu.Unlock()
	return nil
}

// CloseStore closes the attached badger database, if any.
func (r *Recorder) CloseStore() error {
	r.mu.Lock()
	db := r.db
	r.db = nil
	r.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

// SessionID identifies this recording session for persistence keys.
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// flatten converts an Event's parameter record into RecordedParams.
// The manager is needed to read descriptor bytes out of its zone.
func flattenParams(m *Manager, l *List) []RecordedParam {
	if l == nil {
		return nil
	}
	out := make([]RecordedParam, 0, l.CountItems())
	for _, it := range l.items {
		out = append(out, RecordedParam{
			Keyword: it.keyword,
			Type:    it.desc.Type,
			Raw:     append([]byte(nil), m.Bytes(it.desc)...),
		})
	}
	return out
}

// recordDispatch is the entry point used by dispatch.go; it captures
// class/id/params/timestamp from event (and reply, if any) and
// appends them to the recorder's circular buffer.
func (m *Manager) recordDispatch(event, reply *Event) {
	if m.recorder == nil {
		return
	}
	class, id, err := m.ClassAndID(event)
	if err != 0 {
		return
	}
	rec := RecordedEvent{
		Timestamp: m.now(),
		Class:     class,
		ID:        id,
		Params:    flattenParams(m, event.Params),
	}
	if reply != nil {
		replyRec := RecordedEvent{Params: flattenParams(m, reply.Params)}
		rec.Reply = &replyRec
	}

	rec2 := rec
	r := m.recorder
	r.mu.Lock()
	r.entries[r.next] = rec2
	r.next = (r.next + 1) % r.capacity
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// Entries returns a snapshot of the log in chronological order
// (oldest first).
func (r *Recorder) Entries() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]RecordedEvent, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]RecordedEvent, r.capacity)
	copy(out, r.entries[r.next:])
	copy(out[r.capacity-r.next:], r.entries[:r.next])
	return out
}

// Persist writes the current log snapshot to the attached badger
// store under this session's key.
func (r *Recorder) Persist() error {
	r.mu.Lock()
	db := r.db
	session := r.sessionID
	r.mu.Unlock()
	if db == nil {
		return fmt.Errorf("appleevent: no recording store attached")
	}
	entries := r.Entries()

	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s\n", e.ScriptText())
	}

	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("recording/"+session), buf.Bytes())
	})
}

// LoadSession reads back a previously persisted text log by session
// ID.
func (r *Recorder) LoadSession(sessionID string) (string, error) {
	r.mu.Lock()
	db := r.db
	r.mu.Unlock()
	if db == nil {
		return "", fmt.Errorf("appleevent: no recording store attached")
	}
	var out string
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("recording/" + sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	return out, err
}

// ScriptText renders one recorded event in a scripting-like
// "class id {key: value, ...}" syntax.
func (e RecordedEvent) ScriptText() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s {", keywordString(e.Class), keywordString(e.ID))
	for i, p := range e.Params {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s: %s(%x)", keywordString(p.Keyword), typeString(p.Type), p.Raw)
	}
	buf.WriteString("}")
	if e.Reply != nil {
		buf.WriteString(" -> reply")
	}
	return buf.String()
}

func keywordString(k Keyword) string { return string(bytes.TrimRight(k[:], " ")) }
func typeString(t Type) string       { return string(bytes.TrimRight(t[:], " ")) }
