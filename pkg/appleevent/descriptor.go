// Package appleevent reimplements the classic AppleEvent Manager:
// typed descriptors, lists/records, a coercion registry, dispatch with
// handler tables, suspend/resume, and bounded recording.
package appleevent

import (
	"encoding/binary"
	"strconv"

	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
)

// Type is a 4-byte descriptor type code.
type Type [4]byte

func NewType(s string) Type {
	var t Type
	for i := 0; i < 4; i++ {
		if i < len(s) {
			t[i] = s[i]
		} else {
			t[i] = ' '
		}
	}
	return t
}

func (t Type) String() string { return string(t[:]) }

// Reserved type codes.
var (
	TypeNull       = Type{}
	TypeWildCard   = NewType("****")
	TypeInteger16  = NewType("shor")
	TypeInteger32  = NewType("long")
	TypeFloat      = NewType("sing")
	TypeDouble     = NewType("doub")
	TypeBoolean    = NewType("bool")
	TypeChar       = NewType("TEXT")
	TypeFSS        = NewType("fss ")
	TypeAlias      = NewType("alis")
	TypePSN        = NewType("psn ")
	TypeAEList     = NewType("list")
	TypeAERecord   = NewType("reco")
	TypeAppleEvent = NewType("aevt")
)

// Descriptor is the atomic value in the AppleEvent model: a type code
// plus a Handle (or NULL) holding its raw bytes.
type Descriptor struct {
	Type Type
	h    memmgr.Handle
}

// Zero reports whether d is the Null descriptor.
func (d Descriptor) Zero() bool { return d.Type == TypeNull && d.h.Zero() }

// CreateDesc copies data into a fresh Handle tagged by t.
func (m *Manager) CreateDesc(t Type, data []byte) (Descriptor, toolboxerr.OSErr) {
	if len(data) == 0 {
		return Descriptor{Type: t}, toolboxerr.NoErr
	}
	h, err := m.zone.NewHandle(len(data))
	if err != toolboxerr.NoErr {
		return Descriptor{}, err
	}
	m.zone.SetBytes(h, data)
	return Descriptor{Type: t, h: h}, toolboxerr.NoErr
}

// DisposeDesc drops d's Handle and resets it to Null. Idempotent on
// Null.
func (m *Manager) DisposeDesc(d *Descriptor) {
	if d.Zero() {
		*d = Descriptor{}
		return
	}
	if !d.h.Zero() {
		m.zone.DisposeHandle(d.h)
	}
	*d = Descriptor{}
}

// DuplicateDesc deep-copies d's payload into a new Handle.
func (m *Manager) DuplicateDesc(d Descriptor) (Descriptor, toolboxerr.OSErr) {
	return m.CreateDesc(d.Type, m.Bytes(d))
}

// Bytes returns d's raw payload.
func (m *Manager) Bytes(d Descriptor) []byte {
	if d.h.Zero() {
		return nil
	}
	return m.zone.Bytes(d.h)
}

// --- scalar convenience constructors/readers, used by coercions and tests ---

func (m *Manager) NewInt32Desc(v int32) (Descriptor, toolboxerr.OSErr) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return m.CreateDesc(TypeInteger32, buf)
}

func (m *Manager) NewInt16Desc(v int16) (Descriptor, toolboxerr.OSErr) {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(v))
	return m.CreateDesc(TypeInteger16, buf)
}

func (m *Manager) NewBoolDesc(v bool) (Descriptor, toolboxerr.OSErr) {
	b := byte(0)
	if v {
		b = 1
	}
	return m.CreateDesc(TypeBoolean, []byte{b})
}

func (m *Manager) NewTextDesc(s string) (Descriptor, toolboxerr.OSErr) {
	return m.CreateDesc(TypeChar, []byte(s))
}

func (m *Manager) Int32Value(d Descriptor) (int32, bool) {
	b := m.Bytes(d)
	if len(b) != 4 {
		return 0, false
	}
	return int32(binary.BigEndian.Uint32(b)), true
}

func (m *Manager) Int16Value(d Descriptor) (int16, bool) {
	b := m.Bytes(d)
	if len(b) != 2 {
		return 0, false
	}
	return int16(binary.BigEndian.Uint16(b)), true
}

func (m *Manager) BoolValue(d Descriptor) (bool, bool) {
	b := m.Bytes(d)
	if len(b) != 1 {
		return false, false
	}
	return b[0] != 0, true
}

func (m *Manager) TextValue(d Descriptor) (string, bool) {
	return string(m.Bytes(d)), true
}

func parseIntText(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}
