package appleevent

import "github.com/paleotech/toolbox7/pkg/toolboxerr"

// Outcome is the result of ProcessAppleEvent.
type Outcome int

const (
	OutcomeExecuted Outcome = iota
	OutcomeSuspended
	OutcomeNotHandled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "executed"
	case OutcomeSuspended:
		return "suspended"
	case OutcomeNotHandled:
		return "not-handled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const maxDispatchDepth = 64

// dispatchControl is the per-dispatch reentrancy flag a handler sets
// by calling SuspendTheCurrentEvent.
type dispatchControl struct {
	suspendRequested bool
}

// ProcessAppleEvent runs the 11-step dispatch algorithm of spec
// §4.D.3 against event, filling reply (may be nil) on success.
func (m *Manager) ProcessAppleEvent(event *Event, reply *Event) (Outcome, toolboxerr.OSErr) {
	m.mu.Lock()
	depth := len(m.current)
	m.mu.Unlock()
	if depth >= maxDispatchDepth {
		panic("appleevent: recursive dispatch overflow")
	}

	// Step 1: global event filter.
	m.mu.RLock()
	filter := m.filter
	m.mu.RUnlock()
	if filter != nil && !filter(event) {
		return OutcomeNotHandled, toolboxerr.ErrAEEventNotHandled
	}

	// Step 2: extract (class, id).
	class, id, err := m.ClassAndID(event)
	if err != toolboxerr.NoErr {
		m.recordStats(false, false)
		return OutcomeFailed, err
	}

	// Step 3: resolve handler by first-match.
	handler, found := m.resolveHandler(class, id)
	if !found {
		m.recordStats(false, false)
		return OutcomeNotHandled, toolboxerr.ErrAEEventNotHandled
	}

	// Step 5: pre-dispatch hook.
	m.mu.RLock()
	pre := m.preDispatch
	post := m.postDispatch
	errHandler := m.errorHandler
	m.mu.RUnlock()
	if pre != nil {
		pre(event)
	}

	// Step 6: push current-event context, clear suspension.
	m.mu.Lock()
	m.current = append(m.current, event)
	m.mu.Unlock()

	ctl := &dispatchControl{}
	m.mu.Lock()
	m.activeCtl = ctl
	m.mu.Unlock()

	// Step 7: invoke handler; measure elapsed ticks.
	start := m.now()
	hErr := handler(m, event, reply)
	_ = m.now() - start

	// Step 8: interpret outcome.
	outcome := OutcomeExecuted
	if ctl.suspendRequested {
		outcome = OutcomeSuspended
		token := m.storeSuspended(event, reply)
		_ = token
	} else if hErr != toolboxerr.NoErr {
		if errHandler != nil {
			if rewritten, handled := errHandler(event, hErr); handled {
				hErr = rewritten
				if hErr == toolboxerr.NoErr {
					outcome = OutcomeExecuted
				} else {
					outcome = OutcomeFailed
				}
			} else {
				outcome = OutcomeFailed
			}
		} else {
			outcome = OutcomeFailed
		}
	}

	// Step 9: post-dispatch hook.
	if post != nil {
		post(event)
	}

	// Step 10: restore previous current-event context.
	m.mu.Lock()
	m.current = m.current[:len(m.current)-1]
	m.activeCtl = nil
	m.mu.Unlock()

	// Step 11: update statistics.
	m.recordStats(outcome == OutcomeExecuted, outcome == OutcomeFailed)

	if m.recorder != nil {
		m.recordDispatch(event, reply)
	}

	if outcome == OutcomeFailed {
		return outcome, hErr
	}
	return outcome, toolboxerr.NoErr
}

func (m *Manager) resolveHandler(class, id Keyword) (HandlerFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.handlers[handlerKey{class, id, false}]; ok {
		return h, true
	}
	if h, ok := m.handlers[handlerKey{class, id, true}]; ok {
		return h, true
	}
	if h, ok := m.handlers[handlerKey{class, WildcardKeyword, false}]; ok {
		return h, true
	}
	if h, ok := m.handlers[handlerKey{class, WildcardKeyword, true}]; ok {
		return h, true
	}
	if m.defaultHandler != nil {
		return m.defaultHandler, true
	}
	return nil, false
}

func (m *Manager) recordStats(handled, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Dispatched++
	if handled {
		m.stats.Handled++
	}
	if failed {
		m.stats.Failed++
	}
}

// SuspendTheCurrentEvent is called from within a handler to mark the
// event currently being dispatched as suspended; the handler should
// return immediately afterward.
func (m *Manager) SuspendTheCurrentEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeCtl != nil {
		m.activeCtl.suspendRequested = true
	}
}

// ResumeMode selects how ResumeTheCurrentEvent re-dispatches a
// suspended event.
type ResumeMode int

const (
	ResumeStandardDispatch ResumeMode = iota
	ResumeNoDispatch
)

func (m *Manager) storeSuspended(event, reply *Event) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextToken++
	token := m.nextToken
	m.suspended[token] = &suspendedEvent{event: event, reply: reply}
	return token
}

// ResumeTheCurrentEvent resumes a suspended event by token. With
// ResumeStandardDispatch it re-runs ProcessAppleEvent; with
// ResumeNoDispatch it simply delivers the existing reply unchanged.
func (m *Manager) ResumeTheCurrentEvent(token int64, mode ResumeMode) (Outcome, toolboxerr.OSErr) {
	m.mu.Lock()
	se, ok := m.suspended[token]
	if ok {
		delete(m.suspended, token)
	}
	m.mu.Unlock()
	if !ok {
		return OutcomeFailed, toolboxerr.ErrAEDescNotFound
	}

	switch mode {
	case ResumeNoDispatch:
		return OutcomeExecuted, toolboxerr.NoErr
	default:
		return m.ProcessAppleEvent(se.event, se.reply)
	}
}

// CancelSuspended drops a suspended event without delivering it.
func (m *Manager) CancelSuspended(token int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.suspended, token)
}
