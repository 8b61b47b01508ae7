// Package resource reimplements the classic Macintosh Resource
// Manager: a chained, read-through resource file stack with typed/IDed
// /named lookup and automatic decompression.
package resource

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// Type is a 4-byte resource type code, e.g. "PAT ", "INIT", "CDEF".
type Type [4]byte

// NewType builds a Type from a string, padding with spaces as classic
// 4-char codes conventionally are.
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

// ID is a resource's signed 16-bit identifier.
type ID int16

// Attr is the resource attribute bitmask.
type Attr uint8

const (
	AttrSysHeap    Attr = 1 << 6
	AttrPurgeable  Attr = 1 << 5
	AttrLocked     Attr = 1 << 4
	AttrProtected  Attr = 1 << 3
	AttrPreload    Attr = 1 << 2
	AttrChanged    Attr = 1 << 1
	AttrCompressed Attr = 1 << 0
)

// entry is one resource's map record plus its raw data, the unit the
// codec round-trips.
type entry struct {
	typ     Type
	id      ID
	name    string
	hasName bool
	attrs   Attr
	data    []byte
}

const headerSize = 16

type fileHeader struct {
	dataOffset uint32
	mapOffset  uint32
	dataLength uint32
	mapLength  uint32
}

func readHeader(r io.ReaderAt) (fileHeader, error) {
	buf := make([]byte, headerSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return fileHeader{}, fmt.Errorf("resource: read header: %w", err)
	}
	return fileHeader{
		dataOffset: binary.BigEndian.Uint32(buf[0:4]),
		mapOffset:  binary.BigEndian.Uint32(buf[4:8]),
		dataLength: binary.BigEndian.Uint32(buf[8:12]),
		mapLength:  binary.BigEndian.Uint32(buf[12:16]),
	}, nil
}

func writeHeader(w io.WriterAt, h fileHeader) error {
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], h.dataOffset)
	binary.BigEndian.PutUint32(buf[4:8], h.mapOffset)
	binary.BigEndian.PutUint32(buf[8:12], h.dataLength)
	binary.BigEndian.PutUint32(buf[12:16], h.mapLength)
	_, err := w.WriteAt(buf, 0)
	return err
}

func put24(buf []byte, v uint32) {
	buf[0] = byte(v >> 16)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v)
}

func get24(buf []byte) uint32 {
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
}

// decodeFile reads every entry out of a resource file image accessible
// through r, following the exact §6.1 layout.
func decodeFile(r io.ReaderAt) ([]entry, error) {
	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	mapBuf := make([]byte, hdr.mapLength)
	if _, err := r.ReadAt(mapBuf, int64(hdr.mapOffset)); err != nil {
		return nil, fmt.Errorf("resource: read map: %w", err)
	}

	typeListOffset := binary.BigEndian.Uint16(mapBuf[2:4])
	nameListOffset := binary.BigEndian.Uint16(mapBuf[4:6])
	numTypesMinus1 := binary.BigEndian.Uint16(mapBuf[6:8])
	numTypes := int(numTypesMinus1) + 1
	if numTypesMinus1 == 0xFFFF {
		numTypes = 0
	}

	var entries []entry
	typeListBase := int(typeListOffset)
	for i := 0; i < numTypes; i++ {
		off := typeListBase + i*8
		typeCode := mapBuf[off : off+4]
		countMinus1 := binary.BigEndian.Uint16(mapBuf[off+4 : off+6])
		refListOffset := binary.BigEndian.Uint16(mapBuf[off+6 : off+8])
		count := int(countMinus1) + 1

		var t Type
		copy(t[:], typeCode)

		refBase := typeListBase + int(refListOffset)
		for j := 0; j < count; j++ {
			roff := refBase + j*12
			id := ID(binary.BigEndian.Uint16(mapBuf[roff : roff+2]))
			nameOff := binary.BigEndian.Uint16(mapBuf[roff+2 : roff+4])
			attrs := Attr(mapBuf[roff+4])
			dataOff := get24(mapBuf[roff+5 : roff+8])

			e := entry{typ: t, id: id, attrs: attrs}
			if nameOff != 0xFFFF {
				nameStart := int(nameListOffset) + int(nameOff)
				nameLen := int(mapBuf[nameStart])
				e.name = string(mapBuf[nameStart+1 : nameStart+1+nameLen])
				e.hasName = true
			}

			dataAt := int64(hdr.dataOffset) + int64(dataOff)
			lenBuf := make([]byte, 4)
			if _, err := r.ReadAt(lenBuf, dataAt); err != nil {
				return nil, fmt.Errorf("resource: read data length: %w", err)
			}
			dataLen := binary.BigEndian.Uint32(lenBuf)
			data := make([]byte, dataLen)
			if dataLen > 0 {
				if _, err := r.ReadAt(data, dataAt+4); err != nil {
					return nil, fmt.Errorf("resource: read data: %w", err)
				}
			}
			e.data = data
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// encodeFile writes entries into the exact §6.1 layout at w, returning
// the total byte length of the image.
func encodeFile(w io.WriterAt, entries []entry) (int64, error) {
	// Stable ordering: group by type in first-seen order, then by id
	// within a type, matching how the map's type list is scanned.
	byType := map[Type][]entry{}
	var typeOrder []Type
	for _, e := range entries {
		if _, ok := byType[e.typ]; !ok {
			typeOrder = append(typeOrder, e.typ)
		}
		byType[e.typ] = append(byType[e.typ], e)
	}
	for _, t := range typeOrder {
		es := byType[t]
		sort.Slice(es, func(i, j int) bool { return es[i].id < es[j].id })
		byType[t] = es
	}

	// Data section.
	dataOffset := uint32(headerSize)
	var dataBuf []byte
	dataOffsets := map[int]uint32{} // index into entries -> offset rel to dataOffset
	idx := 0
	for _, t := range typeOrder {
		for _, e := range byType[t] {
			rel := uint32(len(dataBuf))
			lenBuf := make([]byte, 4)
			binary.BigEndian.PutUint32(lenBuf, uint32(len(e.data)))
			dataBuf = append(dataBuf, lenBuf...)
			dataBuf = append(dataBuf, e.data...)
			dataOffsets[idx] = rel
			idx++
		}
	}
	dataLength := uint32(len(dataBuf))
	mapOffset := dataOffset + dataLength

	// Name list.
	var nameBuf []byte
	nameOffsets := map[int]uint16{}
	idx = 0
	for _, t := range typeOrder {
		for _, e := range byType[t] {
			if e.hasName {
				nameOffsets[idx] = uint16(len(nameBuf))
				nameBuf = append(nameBuf, byte(len(e.name)))
				nameBuf = append(nameBuf, e.name...)
			}
			idx++
		}
	}

	// Type list + reference lists.
	typeListOffset := uint16(8) // mapAttrs(2)+typeListOff(2)+nameListOff(2)+numTypes(2)
	numTypes := len(typeOrder)
	typeListSize := numTypes * 8
	var refListBuf []byte
	var typeListBuf []byte
	idx = 0
	refListBase := typeListSize
	for _, t := range typeOrder {
		es := byType[t]
		refListOffset := uint16(refListBase + len(refListBuf))
		tlEntry := make([]byte, 8)
		copy(tlEntry[0:4], t[:])
		binary.BigEndian.PutUint16(tlEntry[4:6], uint16(len(es)-1))
		binary.BigEndian.PutUint16(tlEntry[6:8], refListOffset)
		typeListBuf = append(typeListBuf, tlEntry...)

		for _, e := range es {
			refEntry := make([]byte, 12)
			binary.BigEndian.PutUint16(refEntry[0:2], uint16(e.id))
			nameOff := uint16(0xFFFF)
			if no, ok := nameOffsets[idx]; ok {
				nameOff = no
			}
			binary.BigEndian.PutUint16(refEntry[2:4], nameOff)
			refEntry[4] = byte(e.attrs)
			put24(refEntry[5:8], dataOffsets[idx])
			refListBuf = append(refListBuf, refEntry...)
			idx++
		}
	}

	nameListOffset := uint16(typeListOffset) + uint16(typeListSize) + uint16(len(refListBuf))

	mapHeader := make([]byte, 8)
	binary.BigEndian.PutUint16(mapHeader[0:2], 0) // mapAttributes
	binary.BigEndian.PutUint16(mapHeader[2:4], typeListOffset)
	binary.BigEndian.PutUint16(mapHeader[4:6], nameListOffset)
	numTypesMinus1 := uint16(0xFFFF)
	if numTypes > 0 {
		numTypesMinus1 = uint16(numTypes - 1)
	}
	binary.BigEndian.PutUint16(mapHeader[6:8], numTypesMinus1)

	var mapBuf []byte
	mapBuf = append(mapBuf, mapHeader...)
	mapBuf = append(mapBuf, typeListBuf...)
	mapBuf = append(mapBuf, refListBuf...)
	mapBuf = append(mapBuf, nameBuf...)
	mapLength := uint32(len(mapBuf))

	if err := writeHeader(w, fileHeader{
		dataOffset: dataOffset,
		mapOffset:  mapOffset,
		dataLength: dataLength,
		mapLength:  mapLength,
	}); err != nil {
		return 0, err
	}
	if _, err := w.WriteAt(dataBuf, int64(dataOffset)); err != nil {
		return 0, fmt.Errorf("resource: write data: %w", err)
	}
	if _, err := w.WriteAt(mapBuf, int64(mapOffset)); err != nil {
		return 0, fmt.Errorf("resource: write map: %w", err)
	}
	return int64(mapOffset) + int64(mapLength), nil
}
