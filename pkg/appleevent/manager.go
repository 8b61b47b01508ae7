package appleevent

import (
	"sync"

	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/platform"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
)

// CoercionFunc converts raw bytes of FromType into raw bytes of
// ToType.
type CoercionFunc func(raw []byte) ([]byte, error)

type coercionKey struct {
	from, to Type
	isSystem bool
}

// HandlerFunc processes an AppleEvent and fills in a reply.
type HandlerFunc func(m *Manager, event *Event, reply *Event) toolboxerr.OSErr

type handlerKey struct {
	class, id Keyword
	isSystem  bool
}

// Stats tracks dispatch statistics.
type Stats struct {
	Dispatched int64
	Handled    int64
	Failed     int64
}

// Manager is the AppleEvent Manager: descriptor algebra, coercion
// registry, three handler tables, dispatch, suspend/resume, and
// recording.
type Manager struct {
	mu sync.RWMutex

	zone  *memmgr.Zone
	ticks platform.TickSource

	coercions map[coercionKey]CoercionFunc

	handlers        map[handlerKey]HandlerFunc
	defaultHandler  HandlerFunc
	filter          func(*Event) bool
	preDispatch     func(*Event)
	postDispatch    func(*Event)
	errorHandler    func(*Event, toolboxerr.OSErr) (toolboxerr.OSErr, bool)

	current   []*Event // stack of currently-dispatching events
	activeCtl *dispatchControl
	suspended map[int64]*suspendedEvent
	nextToken int64

	interactionAllowed bool
	defaultTimeout     uint64

	stats Stats

	recorder *Recorder
}

type suspendedEvent struct {
	event *Event
	reply *Event
}

// New constructs a Manager. ticks may be nil, in which case tick-based
// timestamps read as zero.
func New(zone *memmgr.Zone, ticks platform.TickSource) *Manager {
	m := &Manager{
		zone:               zone,
		ticks:              ticks,
		coercions:          make(map[coercionKey]CoercionFunc),
		handlers:           make(map[handlerKey]HandlerFunc),
		suspended:          make(map[int64]*suspendedEvent),
		interactionAllowed: true,
		defaultTimeout:     600, // ticks; ~10s at 60Hz nominal
	}
	m.registerBuiltinCoercions()
	return m
}

func (m *Manager) now() uint64 {
	if m.ticks == nil {
		return 0
	}
	return m.ticks.Ticks()
}

// SetInteractionAllowed / GetInteractionAllowed.
func (m *Manager) SetInteractionAllowed(b bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactionAllowed = b
}

func (m *Manager) GetInteractionAllowed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interactionAllowed
}

// StatsSnapshot returns a snapshot of the dispatch counters.
func (m *Manager) StatsSnapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// SetDefaultTimeout stores a default send timeout in ticks. The
// package has no send operation, and nothing reads the stored value.
func (m *Manager) SetDefaultTimeout(ticks uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultTimeout = ticks
}

// EnableRecording attaches a bounded circular recorder of the given
// capacity.
func (m *Manager) EnableRecording(capacity int) *Recorder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = NewRecorder(capacity)
	return m.recorder
}

// Recording returns the active recorder, if any.
func (m *Manager) Recording() *Recorder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.recorder
}
