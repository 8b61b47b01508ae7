package appleevent

import "github.com/paleotech/toolbox7/pkg/toolboxerr"

// Mandatory AppleEvent attribute keywords.
var (
	KeyEventClass     = NewKeyword("evcl")
	KeyEventID        = NewKeyword("evid")
	KeyAddress        = NewKeyword("addr")
	KeyReturnID       = NewKeyword("rtid")
	KeyTransactionID  = NewKeyword("tran")
	KeyEventSource    = NewKeyword("esrc")
)

// Event is an AppleEvent: a record of mandatory attribute keywords
// plus user parameters.
type Event struct {
	Attrs  *List
	Params *List
}

// CreateAppleEvent builds an Event with its class, ID, address,
// return-ID and transaction-ID attributes filled in. The event-source
// attribute (KeyEventSource) is not set. address may be the Null
// descriptor.
func (m *Manager) CreateAppleEvent(class, id Keyword, address Descriptor, returnID, transactionID int32) (*Event, toolboxerr.OSErr) {
	e := &Event{Attrs: CreateList(true), Params: CreateList(true)}

	classDesc, _ := m.CreateDesc(TypeChar, []byte(class[:]))
	idDesc, _ := m.CreateDesc(TypeChar, []byte(id[:]))
	retDesc, err := m.NewInt32Desc(returnID)
	if err != toolboxerr.NoErr {
		return nil, err
	}
	tranDesc, err := m.NewInt32Desc(transactionID)
	if err != toolboxerr.NoErr {
		return nil, err
	}

	e.Attrs.PutKeyDesc(KeyEventClass, classDesc)
	e.Attrs.PutKeyDesc(KeyEventID, idDesc)
	e.Attrs.PutKeyDesc(KeyAddress, address)
	e.Attrs.PutKeyDesc(KeyReturnID, retDesc)
	e.Attrs.PutKeyDesc(KeyTransactionID, tranDesc)
	return e, toolboxerr.NoErr
}

// ClassAndID extracts (class, id) from e's mandatory attributes.
// Failure is ErrAENotAppleEvent.
func (m *Manager) ClassAndID(e *Event) (Keyword, Keyword, toolboxerr.OSErr) {
	classDesc, err := e.Attrs.GetKeyDesc(KeyEventClass)
	if err != toolboxerr.NoErr {
		return Keyword{}, Keyword{}, toolboxerr.ErrAENotAppleEvent
	}
	idDesc, err := e.Attrs.GetKeyDesc(KeyEventID)
	if err != toolboxerr.NoErr {
		return Keyword{}, Keyword{}, toolboxerr.ErrAENotAppleEvent
	}
	var class, id Keyword
	copy(class[:], m.Bytes(classDesc))
	copy(id[:], m.Bytes(idDesc))
	return class, id, toolboxerr.NoErr
}

// PutParam stores d under keyword k in e's parameter record.
func (m *Manager) PutParam(e *Event, k Keyword, d Descriptor) toolboxerr.OSErr {
	return e.Params.PutKeyDesc(k, d)
}

// GetParam retrieves the parameter stored under k, eagerly coercing
// to wantType if it differs from the stored type.
func (m *Manager) GetParam(e *Event, k Keyword, wantType Type) (Descriptor, toolboxerr.OSErr) {
	d, err := e.Params.GetKeyDesc(k)
	if err != toolboxerr.NoErr {
		return Descriptor{}, err
	}
	if wantType == TypeWildCard || d.Type == wantType {
		return d, toolboxerr.NoErr
	}
	return m.Coerce(d, wantType)
}

// InstallEventHandler installs h for (class, id, isSystem). id may be
// WildcardKeyword, matching any event ID of class; class is always
// matched exactly.
func (m *Manager) InstallEventHandler(class, id Keyword, isSystem bool, h HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[handlerKey{class, id, isSystem}] = h
}

// RemoveEventHandler removes a previously installed handler.
func (m *Manager) RemoveEventHandler(class, id Keyword, isSystem bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, handlerKey{class, id, isSystem})
}

// SetDefaultHandler installs the handler invoked when no specific or
// wildcard match is found.
func (m *Manager) SetDefaultHandler(h HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultHandler = h
}

// WildcardKeyword is the reserved keyword matching any class/id.
var WildcardKeyword = NewKeyword("****")

// SetFilter installs the global event filter; a nil filter disables
// filtering.
func (m *Manager) SetFilter(f func(*Event) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = f
}

// SetPreDispatchHook / SetPostDispatchHook / SetErrorHandler install
// the optional dispatch hooks (at most one of each exists
// process-wide).
func (m *Manager) SetPreDispatchHook(f func(*Event))  { m.mu.Lock(); m.preDispatch = f; m.mu.Unlock() }
func (m *Manager) SetPostDispatchHook(f func(*Event)) { m.mu.Lock(); m.postDispatch = f; m.mu.Unlock() }
func (m *Manager) SetErrorHandler(f func(*Event, toolboxerr.OSErr) (toolboxerr.OSErr, bool)) {
	m.mu.Lock()
	m.errorHandler = f
	m.mu.Unlock()
}

// GetTheCurrentEvent returns the event currently being dispatched, if
// any.
func (m *Manager) GetTheCurrentEvent() (*Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.current) == 0 {
		return nil, false
	}
	return m.current[len(m.current)-1], true
}
