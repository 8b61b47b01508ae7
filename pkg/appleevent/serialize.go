package appleevent

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Serialize writes d in the exact binary format of the classic AEDesc
// on-disk layout:
//
//	u32 typeCode
//	u32 dataSize
//	bytes[dataSize]
//
// Lists and records additionally nest a sub-format after the header:
//
//	u32 count
//	u8  isRecord
//	u32 totalSize
//	items[count] { u32 keyword; u32 typeCode; u32 itemSize; bytes[itemSize] }
func (m *Manager) Serialize(w io.Writer, d Descriptor) error {
	if d.Type == TypeAEList || d.Type == TypeAERecord {
		return fmt.Errorf("appleevent: descriptor of list/record type must be serialized via SerializeList")
	}
	raw := m.Bytes(d)
	if err := binary.Write(w, binary.BigEndian, d.Type); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(raw))); err != nil {
		return err
	}
	_, err := w.Write(raw)
	return err
}

// Deserialize reads one descriptor in §6.2 format.
func (m *Manager) Deserialize(r io.Reader) (Descriptor, error) {
	var typ Type
	if err := binary.Read(r, binary.BigEndian, &typ); err != nil {
		return Descriptor{}, err
	}
	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return Descriptor{}, err
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Descriptor{}, err
	}
	d, err := m.CreateDesc(typ, raw)
	if err != 0 {
		return Descriptor{}, fmt.Errorf("appleevent: create descriptor: %v", err)
	}
	return d, nil
}

// SerializeList writes l in the nested list/record format of spec
// §6.2, preceded by the outer TypeAEList/TypeAERecord header.
func (m *Manager) SerializeList(w io.Writer, l *List) error {
	outerType := TypeAEList
	if l.IsRecord {
		outerType = TypeAERecord
	}
	type encodedItem struct {
		keyword Keyword
		typ     Type
		raw     []byte
	}
	items := make([]encodedItem, len(l.items))
	total := 0
	for i, it := range l.items {
		raw := m.Bytes(it.desc)
		items[i] = encodedItem{keyword: it.keyword, typ: it.desc.Type, raw: raw}
		total += 4 + 4 + 4 + len(raw)
	}

	if err := binary.Write(w, binary.BigEndian, outerType); err != nil {
		return err
	}
	// dataSize covers the nested sub-format: count(4) + isRecord(1) + totalSize(4) + items.
	nestedSize := 4 + 1 + 4 + total
	if err := binary.Write(w, binary.BigEndian, uint32(nestedSize)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(items))); err != nil {
		return err
	}
	isRecordByte := byte(0)
	if l.IsRecord {
		isRecordByte = 1
	}
	if _, err := w.Write([]byte{isRecordByte}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(total)); err != nil {
		return err
	}
	for _, it := range items {
		if err := binary.Write(w, binary.BigEndian, it.keyword); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, it.typ); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(it.raw))); err != nil {
			return err
		}
		if _, err := w.Write(it.raw); err != nil {
			return err
		}
	}
	return nil
}

// DeserializeList reads a list/record in §6.2 nested format.
func (m *Manager) DeserializeList(r io.Reader) (*List, error) {
	var outerType Type
	if err := binary.Read(r, binary.BigEndian, &outerType); err != nil {
		return nil, err
	}
	var nestedSize uint32
	if err := binary.Read(r, binary.BigEndian, &nestedSize); err != nil {
		return nil, err
	}
	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	isRecordByte := make([]byte, 1)
	if _, err := io.ReadFull(r, isRecordByte); err != nil {
		return nil, err
	}
	var total uint32
	if err := binary.Read(r, binary.BigEndian, &total); err != nil {
		return nil, err
	}

	l := CreateList(isRecordByte[0] != 0)
	for i := uint32(0); i < count; i++ {
		var kw Keyword
		if err := binary.Read(r, binary.BigEndian, &kw); err != nil {
			return nil, err
		}
		var typ Type
		if err := binary.Read(r, binary.BigEndian, &typ); err != nil {
			return nil, err
		}
		var size uint32
		if err := binary.Read(r, binary.BigEndian, &size); err != nil {
			return nil, err
		}
		raw := make([]byte, size)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, err
		}
		d, err := m.CreateDesc(typ, raw)
		if err != 0 {
			return nil, fmt.Errorf("appleevent: create descriptor: %v", err)
		}
		if l.IsRecord {
			l.PutKeyDesc(kw, d)
		} else {
			l.items = append(l.items, item{keyword: kw, desc: d})
		}
	}
	return l, nil
}
