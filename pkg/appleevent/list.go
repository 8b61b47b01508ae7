package appleevent

import "github.com/paleotech/toolbox7/pkg/toolboxerr"

// Keyword is a 4-byte record keyword. The zero Keyword is used for
// ordinary (non-record) list items.
type Keyword [4]byte

func NewKeyword(s string) Keyword {
	var k Keyword
	for i := 0; i < 4; i++ {
		if i < len(s) {
			k[i] = s[i]
		} else {
			k[i] = ' '
		}
	}
	return k
}

// item is one list/record element: {keyword, descriptor}, mirroring
// the classic on-disk AEDesc list layout.
type item struct {
	keyword Keyword
	desc    Descriptor
}

// List is a descriptor aggregate: either an ordinary list (keywords
// all zero, order-addressed) or a record (non-zero, unique keywords).
type List struct {
	IsRecord bool
	items    []item
}

// CreateList creates an empty list or record.
func CreateList(isRecord bool) *List {
	return &List{IsRecord: isRecord}
}

// CountItems returns the number of elements.
func (l *List) CountItems() int { return len(l.items) }

// PutDesc inserts d at a list index. index == count+1 appends;
// intermediate indices shift the rest right. Only valid for ordinary
// lists.
func (l *List) PutDesc(index int, d Descriptor) toolboxerr.OSErr {
	if l.IsRecord {
		return toolboxerr.ErrAEWrongDataType
	}
	if index < 1 || index > len(l.items)+1 {
		return toolboxerr.ErrAEIllegalIndex
	}
	it := item{desc: d}
	if index == len(l.items)+1 {
		l.items = append(l.items, it)
		return toolboxerr.NoErr
	}
	l.items = append(l.items, item{})
	copy(l.items[index:], l.items[index-1:])
	l.items[index-1] = it
	return toolboxerr.NoErr
}

// GetNthDesc returns the 1-based index-th element. index == 0 or
// count+1 is errAEIllegalIndex.
func (l *List) GetNthDesc(index int) (Descriptor, toolboxerr.OSErr) {
	if index < 1 || index > len(l.items) {
		return Descriptor{}, toolboxerr.ErrAEIllegalIndex
	}
	return l.items[index-1].desc, toolboxerr.NoErr
}

// PutKeyDesc inserts or replaces d under keyword k in a record. A
// replace preserves the insertion order of all other items.
func (l *List) PutKeyDesc(k Keyword, d Descriptor) toolboxerr.OSErr {
	if !l.IsRecord {
		return toolboxerr.ErrAEWrongDataType
	}
	for i := range l.items {
		if l.items[i].keyword == k {
			l.items[i].desc = d
			return toolboxerr.NoErr
		}
	}
	l.items = append(l.items, item{keyword: k, desc: d})
	return toolboxerr.NoErr
}

// GetKeyDesc returns the descriptor stored under keyword k.
func (l *List) GetKeyDesc(k Keyword) (Descriptor, toolboxerr.OSErr) {
	for _, it := range l.items {
		if it.keyword == k {
			return it.desc, toolboxerr.NoErr
		}
	}
	return Descriptor{}, toolboxerr.ErrAEDescNotFound
}

// HasKey reports whether k is present.
func (l *List) HasKey(k Keyword) bool {
	for _, it := range l.items {
		if it.keyword == k {
			return true
		}
	}
	return false
}

// Keywords returns every keyword present, in insertion order.
func (l *List) Keywords() []Keyword {
	out := make([]Keyword, len(l.items))
	for i, it := range l.items {
		out[i] = it.keyword
	}
	return out
}
