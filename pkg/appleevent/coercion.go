package appleevent

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/paleotech/toolbox7/pkg/toolboxerr"
)

// RegisterCoercion installs a coercion from fromType to toType. A
// fromType of TypeWildCard matches any source type (Any -> ToType).
func (m *Manager) RegisterCoercion(fromType, toType Type, isSystem bool, f CoercionFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coercions[coercionKey{fromType, toType, isSystem}] = f
}

// Coerce converts d to targetType. Identity coercion (d.Type ==
// targetType) is a short-circuit duplicate. Otherwise looks up
// (FromType, ToType) then (Any, ToType); fails with ErrAECoercionFail
// if neither is registered.
func (m *Manager) Coerce(d Descriptor, targetType Type) (Descriptor, toolboxerr.OSErr) {
	if d.Type == targetType {
		return m.DuplicateDesc(d)
	}

	m.mu.RLock()
	f, ok := m.coercions[coercionKey{d.Type, targetType, false}]
	if !ok {
		f, ok = m.coercions[coercionKey{d.Type, targetType, true}]
	}
	if !ok {
		f, ok = m.coercions[coercionKey{TypeWildCard, targetType, false}]
	}
	if !ok {
		f, ok = m.coercions[coercionKey{TypeWildCard, targetType, true}]
	}
	m.mu.RUnlock()

	if !ok {
		return Descriptor{}, toolboxerr.ErrAECoercionFail
	}
	out, err := f(m.Bytes(d))
	if err != nil {
		return Descriptor{}, toolboxerr.ErrAECoercionFail
	}
	return m.CreateDesc(targetType, out)
}

// CoercePtr is the raw-bytes entry point: wraps raw into a transient
// descriptor of fromType and coerces it to toType.
func (m *Manager) CoercePtr(fromType Type, raw []byte, toType Type) (Descriptor, toolboxerr.OSErr) {
	d, err := m.CreateDesc(fromType, raw)
	if err != toolboxerr.NoErr {
		return Descriptor{}, err
	}
	defer m.DisposeDesc(&d)
	return m.Coerce(d, toType)
}

func (m *Manager) registerBuiltinCoercions() {
	// text <-> integer16
	m.RegisterCoercion(TypeChar, TypeInteger16, true, func(raw []byte) ([]byte, error) {
		v, ok := parseIntText(string(raw))
		if !ok {
			return nil, fmt.Errorf("appleevent: %q is not an integer", raw)
		}
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(int16(v)))
		return buf, nil
	})
	m.RegisterCoercion(TypeInteger16, TypeChar, true, func(raw []byte) ([]byte, error) {
		if len(raw) != 2 {
			return nil, fmt.Errorf("appleevent: bad integer16 payload")
		}
		v := int16(binary.BigEndian.Uint16(raw))
		return []byte(strconv.Itoa(int(v))), nil
	})

	// text <-> integer32
	m.RegisterCoercion(TypeChar, TypeInteger32, true, func(raw []byte) ([]byte, error) {
		v, ok := parseIntText(string(raw))
		if !ok {
			return nil, fmt.Errorf("appleevent: %q is not an integer", raw)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(int32(v)))
		return buf, nil
	})
	m.RegisterCoercion(TypeInteger32, TypeChar, true, func(raw []byte) ([]byte, error) {
		if len(raw) != 4 {
			return nil, fmt.Errorf("appleevent: bad integer32 payload")
		}
		v := int32(binary.BigEndian.Uint32(raw))
		return []byte(strconv.Itoa(int(v))), nil
	})

	// text <-> boolean
	m.RegisterCoercion(TypeChar, TypeBoolean, true, func(raw []byte) ([]byte, error) {
		switch string(raw) {
		case "true":
			return []byte{1}, nil
		case "false":
			return []byte{0}, nil
		default:
			return nil, fmt.Errorf("appleevent: %q is not a boolean", raw)
		}
	})
	m.RegisterCoercion(TypeBoolean, TypeChar, true, func(raw []byte) ([]byte, error) {
		if len(raw) != 1 {
			return nil, fmt.Errorf("appleevent: bad boolean payload")
		}
		if raw[0] != 0 {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	})

	// integer16 <-> integer32
	m.RegisterCoercion(TypeInteger16, TypeInteger32, true, func(raw []byte) ([]byte, error) {
		if len(raw) != 2 {
			return nil, fmt.Errorf("appleevent: bad integer16 payload")
		}
		v := int16(binary.BigEndian.Uint16(raw))
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(int32(v)))
		return buf, nil
	})
	m.RegisterCoercion(TypeInteger32, TypeInteger16, true, func(raw []byte) ([]byte, error) {
		if len(raw) != 4 {
			return nil, fmt.Errorf("appleevent: bad integer32 payload")
		}
		v := int32(binary.BigEndian.Uint32(raw))
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(int16(v)))
		return buf, nil
	})

	// float -> integer32
	m.RegisterCoercion(TypeFloat, TypeInteger32, true, func(raw []byte) ([]byte, error) {
		if len(raw) != 4 {
			return nil, fmt.Errorf("appleevent: bad float payload")
		}
		bits := binary.BigEndian.Uint32(raw)
		f := math.Float32frombits(bits)
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(int32(f)))
		return buf, nil
	})

	// alias <-> FSS
	m.RegisterCoercion(TypeAlias, TypeFSS, true, func(raw []byte) ([]byte, error) {
		return append([]byte(nil), raw...), nil
	})
	m.RegisterCoercion(TypeFSS, TypeAlias, true, func(raw []byte) ([]byte, error) {
		return append([]byte(nil), raw...), nil
	})
}
