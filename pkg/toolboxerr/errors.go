// Package toolboxerr defines the numeric error taxonomy shared by every
// manager in the core, reproducing the classic Macintosh OSErr codes.
package toolboxerr

import "fmt"

// OSErr is a classic Macintosh-style result code. Zero means no error.
type OSErr int32

// Error satisfies the error interface so an OSErr can be returned and
// compared directly with errors.Is against the sentinels below.
func (e OSErr) Error() string {
	if msg, ok := messages[e]; ok {
		return msg
	}
	return fmt.Sprintf("OSErr %d", int32(e))
}

// NoErr reports whether the code represents success.
func (e OSErr) NoErr() bool { return e == NoErr }

const (
	NoErr OSErr = 0

	// Memory Manager.
	MemFull      OSErr = -108
	NilHandleErr OSErr = -109

	// Resource Manager.
	ResNotFound   OSErr = -192
	ResFNotFound  OSErr = -193
	AddResFailed  OSErr = -194
	ResIOErr      OSErr = -195
	MapReadOnly   OSErr = -196
	ResAttrErr    OSErr = -197

	// Extension / Segment Loader.
	ExtNoErr            OSErr = 0
	ExtNotFound         OSErr = -600
	ExtAlreadyLoaded    OSErr = -601
	ExtMemError         OSErr = -602
	ExtBadResource      OSErr = -603
	ExtInitFailed       OSErr = -604
	ExtVersionMismatch  OSErr = -605
	ExtDependencyFailed OSErr = -606
	ExtDisabled         OSErr = -607
	ExtMaxExtensions    OSErr = -608

	// AppleEvent Manager.
	ErrAENotAppleEvent   OSErr = -1700
	ErrAEEventNotHandled OSErr = -1701
	ErrAEHandlerNotFound OSErr = -1702
	ErrAECoercionFail    OSErr = -1703
	ErrAEDescNotFound    OSErr = -1704
	ErrAEWrongDataType   OSErr = -1705
	ErrAECorruptData     OSErr = -1706
	ErrAEIllegalIndex    OSErr = -1707
	ErrAEBufferTooSmall  OSErr = -1708
	ErrAETimeout         OSErr = -1709
)

var messages = map[OSErr]string{
	NoErr:                "no error",
	MemFull:               "not enough room in heap zone",
	NilHandleErr:          "handle or pointer is nil or empty",
	ResNotFound:           "resource not found",
	ResFNotFound:          "resource file not found",
	AddResFailed:          "add resource failed",
	ResIOErr:              "resource file I/O error",
	MapReadOnly:           "resource file is read-only",
	ResAttrErr:            "invalid resource attributes",
	ExtNotFound:           "extension not found",
	ExtAlreadyLoaded:      "extension already loaded",
	ExtMemError:           "extension memory allocation failed",
	ExtBadResource:        "extension code resource malformed or missing",
	ExtInitFailed:         "extension initialization failed",
	ExtVersionMismatch:    "extension version mismatch",
	ExtDependencyFailed:   "extension dependency failed",
	ExtDisabled:           "extension is disabled",
	ExtMaxExtensions:      "maximum extensions of this kind reached",
	ErrAENotAppleEvent:    "descriptor is not an AppleEvent",
	ErrAEEventNotHandled:  "no handler installed for event",
	ErrAEHandlerNotFound:  "no matching handler found",
	ErrAECoercionFail:     "no coercion handler for requested type",
	ErrAEDescNotFound:     "descriptor not found",
	ErrAEWrongDataType:    "descriptor has the wrong data type",
	ErrAECorruptData:      "descriptor data is corrupt",
	ErrAEIllegalIndex:     "illegal list/record index",
	ErrAEBufferTooSmall:   "recording buffer is full",
	ErrAETimeout:          "AppleEvent send timed out",
}
