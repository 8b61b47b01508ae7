package resource

import (
	"sync"

	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/platform"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
)

// Perm is the permission a resource file was opened with.
type Perm int

const (
	ReadOnly Perm = iota
	ReadWrite
)

// RefNum identifies an open resource file.
type RefNum int

// resourceEntry is one resource's live map record: its on-disk bytes
// plus any cached loaded Handle.
type resourceEntry struct {
	typ      Type
	id       ID
	name     string
	hasName  bool
	attrs    Attr
	rawData  []byte
	handle   memmgr.Handle
	detached bool
}

func (e *resourceEntry) loaded() bool { return !e.handle.Zero() }

// ResFile is one open resource file: a name, a permission, the device
// it is backed by, and the resource map decoded from it.
type ResFile struct {
	mu      sync.Mutex
	refNum  RefNum
	name    string
	perm    Perm
	rw      *deviceReaderWriter
	entries []*resourceEntry
	dirty   bool
	isSystem bool
}

// openResFileFromImage decodes an existing resource file image and
// wraps it as a ResFile. The caller supplies the RefNum.
func openResFileFromImage(refNum RefNum, name string, perm Perm, dev platform.BlockDevice, driveIndex int) (*ResFile, toolboxerr.OSErr) {
	rw := &deviceReaderWriter{dev: dev, driveIndex: driveIndex}
	entries, err := decodeFile(rw)
	if err != nil {
		return nil, toolboxerr.ResIOErr
	}
	rf := &ResFile{refNum: refNum, name: name, perm: perm, rw: rw}
	for _, e := range entries {
		rf.entries = append(rf.entries, &resourceEntry{
			typ: e.typ, id: e.id, name: e.name, hasName: e.hasName,
			attrs: e.attrs, rawData: e.data,
		})
	}
	return rf, toolboxerr.NoErr
}

// newEmptyResFile creates a fresh, empty resource file backed by dev —
// used by CreateResFile.
func newEmptyResFile(refNum RefNum, name string, perm Perm, dev platform.BlockDevice, driveIndex int) *ResFile {
	rw := &deviceReaderWriter{dev: dev, driveIndex: driveIndex}
	return &ResFile{refNum: refNum, name: name, perm: perm, rw: rw}
}

func (rf *ResFile) find(t Type, id ID) *resourceEntry {
	for _, e := range rf.entries {
		if e.typ == t && e.id == id && !e.detached {
			return e
		}
	}
	return nil
}

func (rf *ResFile) findNamed(t Type, name string) *resourceEntry {
	for _, e := range rf.entries {
		if e.typ == t && e.hasName && e.name == name && !e.detached {
			return e
		}
	}
	return nil
}

func (rf *ResFile) countType(t Type) int {
	n := 0
	for _, e := range rf.entries {
		if e.typ == t && !e.detached {
			n++
		}
	}
	return n
}

// indexed returns the i-th (1-based) non-detached entry of type t, in
// map order.
func (rf *ResFile) indexed(t Type, i int) *resourceEntry {
	n := 0
	for _, e := range rf.entries {
		if e.typ == t && !e.detached {
			n++
			if n == i {
				return e
			}
		}
	}
	return nil
}

// types returns the distinct, non-detached resource types present, in
// first-seen order.
func (rf *ResFile) types() []Type {
	seen := map[Type]bool{}
	var out []Type
	for _, e := range rf.entries {
		if e.detached || seen[e.typ] {
			continue
		}
		seen[e.typ] = true
		out = append(out, e.typ)
	}
	return out
}

func (rf *ResFile) uniqueID(t Type) ID {
	used := map[ID]bool{}
	for _, e := range rf.entries {
		if e.typ == t && !e.detached {
			used[e.id] = true
		}
	}
	for id := ID(128); ; id++ {
		if !used[id] {
			return id
		}
	}
}

// flush rewrites the whole file image from the current entries,
// applying any detach/remove as permanent.
func (rf *ResFile) flush() toolboxerr.OSErr {
	if rf.perm == ReadOnly {
		return toolboxerr.MapReadOnly
	}
	var live []*resourceEntry
	var raw []entry
	for _, e := range rf.entries {
		if e.detached {
			continue
		}
		live = append(live, e)
		raw = append(raw, entry{typ: e.typ, id: e.id, name: e.name, hasName: e.hasName, attrs: e.attrs, data: e.rawData})
	}
	if _, err := encodeFile(rf.rw, raw); err != nil {
		return toolboxerr.ResIOErr
	}
	rf.entries = live
	rf.dirty = false
	return toolboxerr.NoErr
}
