package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across every toolbox
// subsystem (Memory Manager, Resource Manager, Extension/Segment
// Loader, AppleEvent Manager). Use these keys consistently so log
// aggregation and querying stay uniform across packages.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Memory Manager
	// ========================================================================
	KeyZone     = "zone"      // Zone name
	KeyHandleID = "handle_id" // Master-pointer slot index within a zone
	KeyPtrID    = "ptr_id"    // Non-relocatable block slot index within a zone
	KeyBudget   = "budget"    // Zone budget in bytes
	KeyUsed     = "used"      // Zone bytes currently in use

	// ========================================================================
	// Resource Manager
	// ========================================================================
	KeyResourceType = "resource_type" // 4-character resource type code
	KeyResourceID   = "resource_id"   // Resource ID within its type
	KeyResourceName = "resource_name" // Named resource identifier
	KeyRefNum       = "ref_num"       // Open resource file reference number
	KeyAttrs        = "attrs"         // Resource attribute bitmask

	// ========================================================================
	// Extension / Segment Loader
	// ========================================================================
	KeyExtensionKind  = "extension_kind"  // INIT, CDEF, DRVR, FKEY, WDEF, LDEF, MDEF
	KeyExtensionName  = "extension_name"  // Extension record name
	KeyExtRefNum      = "ext_ref_num"     // Extension registry reference number
	KeyExtensionState = "extension_state" // Discovered, Loaded, Initialized, Active, Disabled, Error, Suspended
	KeyPriority       = "priority"        // Load-order priority band
	KeyUnit           = "unit"            // DRVR unit table slot (0-31)

	// ========================================================================
	// AppleEvent Manager
	// ========================================================================
	KeyEventClass     = "event_class"     // AppleEvent class keyword
	KeyEventID        = "event_id"        // AppleEvent ID keyword
	KeyEventAddress   = "event_address"   // Target process descriptor, informational
	KeyKeyword        = "keyword"         // List/record item keyword
	KeyDispatchResult = "dispatch_result" // Dispatch outcome: executed, suspended, not-handled, failed

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyTicks      = "ticks"       // Monotonic 60Hz tick count
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric OSErr code
	KeySource     = "source"      // Data source: bits_pool, memory_manager, etc.
	KeyOperation  = "operation"   // Sub-operation type for complex operations

	// ========================================================================
	// Decompression Cache (Resource Manager)
	// ========================================================================
	KeyCacheHit      = "cache_hit"      // Cache hit indicator
	KeyCacheSize     = "cache_size"     // Current cache entry count
	KeyCacheCapacity = "cache_capacity" // Maximum cache entry count
	KeyEvicted       = "evicted"        // Number of entries evicted

	// ========================================================================
	// AppleEvent Recording Session
	// ========================================================================
	KeySessionID = "session_id" // Recording session identifier
	KeyAttempt   = "attempt"    // Retry attempt number (AESend resend, etc.)
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Zone returns a slog.Attr for a Memory Manager zone name.
func Zone(name string) slog.Attr { return slog.String(KeyZone, name) }

// HandleID returns a slog.Attr for a Handle's master-pointer slot index.
func HandleID(id int) slog.Attr { return slog.Int(KeyHandleID, id) }

// PtrID returns a slog.Attr for a Ptr's slot index.
func PtrID(id int) slog.Attr { return slog.Int(KeyPtrID, id) }

// Budget returns a slog.Attr for a zone's budget in bytes.
func Budget(n int) slog.Attr { return slog.Int(KeyBudget, n) }

// Used returns a slog.Attr for a zone's bytes in use.
func Used(n int) slog.Attr { return slog.Int(KeyUsed, n) }

// ResourceType returns a slog.Attr for a 4-character resource type code.
func ResourceType(t string) slog.Attr { return slog.String(KeyResourceType, t) }

// ResourceID returns a slog.Attr for a resource ID.
func ResourceID(id int) slog.Attr { return slog.Int(KeyResourceID, id) }

// ResourceName returns a slog.Attr for a named resource.
func ResourceName(name string) slog.Attr { return slog.String(KeyResourceName, name) }

// RefNum returns a slog.Attr for an open resource file reference number.
func RefNum(n int) slog.Attr { return slog.Int(KeyRefNum, n) }

// Attrs returns a slog.Attr for a resource attribute bitmask.
func Attrs(mask uint8) slog.Attr { return slog.Any(KeyAttrs, mask) }

// ExtensionKind returns a slog.Attr for an extension kind (INIT, DRVR, ...).
func ExtensionKind(kind string) slog.Attr { return slog.String(KeyExtensionKind, kind) }

// ExtensionName returns a slog.Attr for an extension record name.
func ExtensionName(name string) slog.Attr { return slog.String(KeyExtensionName, name) }

// ExtRefNum returns a slog.Attr for an extension registry reference number.
func ExtRefNum(n int) slog.Attr { return slog.Int(KeyExtRefNum, n) }

// ExtensionState returns a slog.Attr for an extension's lifecycle state.
func ExtensionState(state string) slog.Attr { return slog.String(KeyExtensionState, state) }

// Priority returns a slog.Attr for a load-order priority band.
func Priority(p int) slog.Attr { return slog.Int(KeyPriority, p) }

// Unit returns a slog.Attr for a DRVR unit table slot.
func Unit(n int) slog.Attr { return slog.Int(KeyUnit, n) }

// EventClass returns a slog.Attr for an AppleEvent class keyword.
func EventClass(class string) slog.Attr { return slog.String(KeyEventClass, class) }

// EventID returns a slog.Attr for an AppleEvent ID keyword.
func EventID(id string) slog.Attr { return slog.String(KeyEventID, id) }

// EventAddress returns a slog.Attr for a target process descriptor.
func EventAddress(addr string) slog.Attr { return slog.String(KeyEventAddress, addr) }

// Keyword returns a slog.Attr for a list/record item keyword.
func Keyword(k string) slog.Attr { return slog.String(KeyKeyword, k) }

// DispatchResult returns a slog.Attr for a dispatch outcome.
func DispatchResult(outcome string) slog.Attr { return slog.String(KeyDispatchResult, outcome) }

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Ticks returns a slog.Attr for a monotonic 60Hz tick count.
func Ticks(t uint64) slog.Attr { return slog.Uint64(KeyTicks, t) }

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric OSErr code.
func ErrorCode(code int32) slog.Attr { return slog.Int(KeyErrorCode, int(code)) }

// Source returns a slog.Attr for a data source.
func Source(src string) slog.Attr { return slog.String(KeySource, src) }

// Operation returns a slog.Attr for a sub-operation type.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// CacheHit returns a slog.Attr for a decompression cache hit indicator.
func CacheHit(hit bool) slog.Attr { return slog.Bool(KeyCacheHit, hit) }

// CacheSize returns a slog.Attr for the current cache entry count.
func CacheSize(n int) slog.Attr { return slog.Int(KeyCacheSize, n) }

// CacheCapacity returns a slog.Attr for the maximum cache entry count.
func CacheCapacity(n int) slog.Attr { return slog.Int(KeyCacheCapacity, n) }

// Evicted returns a slog.Attr for the number of cache entries evicted.
func Evicted(n int) slog.Attr { return slog.Int(KeyEvicted, n) }

// SessionID returns a slog.Attr for a recording session identifier.
func SessionID(id string) slog.Attr { return slog.String(KeySessionID, id) }

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }
