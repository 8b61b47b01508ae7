package resource

import (
	"testing"

	"github.com/paleotech/toolbox7/pkg/memmgr"
	"github.com/paleotech/toolbox7/pkg/toolboxerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildImage writes a single-file resource image with the given
// entries directly through the codec, bypassing the Manager, so tests
// can set up fixtures independent of AddResource.
func buildImage(t *testing.T, dev *MemoryBlockDevice, entries []entry) {
	t.Helper()
	rw := &deviceReaderWriter{dev: dev, driveIndex: 0}
	_, err := encodeFile(rw, entries)
	require.NoError(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	dev := NewMemoryBlockDevice(64 * 1024)
	entries := []entry{
		{typ: NewType("PAT "), id: 128, data: []byte("AAAA")},
		{typ: NewType("PAT "), id: 129, data: []byte("ZZZZZ"), hasName: true, name: "stripes"},
	}
	buildImage(t, dev, entries)

	rw := &deviceReaderWriter{dev: dev, driveIndex: 0}
	got, err := decodeFile(rw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []byte("AAAA"), got[0].data)
	assert.Equal(t, "stripes", got[1].name)
}

func TestGetResourceAndReleaseRoundTrip(t *testing.T) {
	dev := NewMemoryBlockDevice(64 * 1024)
	buildImage(t, dev, []entry{{typ: NewType("PAT "), id: 128, data: []byte("payload-bytes")}})

	zone := memmgr.NewZone("resources", 0)
	mgr := NewManager(zone, 0)

	ref, oerr := mgr.OpenResFile("test", dev, 0, ReadOnly, false)
	require.Equal(t, toolboxerr.NoErr, oerr)
	mgr.UseResFile(ref)

	h1, oerr := mgr.GetResource(NewType("PAT "), 128)
	require.Equal(t, toolboxerr.NoErr, oerr)
	assert.Equal(t, "payload-bytes", string(zone.Bytes(h1)))

	require.Equal(t, toolboxerr.NoErr, mgr.ReleaseResource(h1))

	h2, oerr := mgr.GetResource(NewType("PAT "), 128)
	require.Equal(t, toolboxerr.NoErr, oerr)
	assert.Equal(t, "payload-bytes", string(zone.Bytes(h2)))
	assert.Equal(t, len("payload-bytes"), zone.GetHandleSize(h2))
}

func TestResourceChainOverride(t *testing.T) {
	devA := NewMemoryBlockDevice(64 * 1024)
	buildImage(t, devA, []entry{{typ: NewType("PAT "), id: 128, data: []byte("AAAA")}})
	devB := NewMemoryBlockDevice(64 * 1024)
	buildImage(t, devB, []entry{{typ: NewType("PAT "), id: 128, data: []byte("BBBB")}})

	zone := memmgr.NewZone("resources", 0)
	mgr := NewManager(zone, 0)

	refA, _ := mgr.OpenResFile("A", devA, 0, ReadOnly, false)
	refB, _ := mgr.OpenResFile("B", devB, 0, ReadOnly, false)
	mgr.UseResFile(refA)

	h, err := mgr.GetResource(NewType("PAT "), 128)
	require.Equal(t, toolboxerr.NoErr, err)
	assert.Equal(t, "BBBB", string(zone.Bytes(h)))

	h1, err := mgr.Get1Resource(NewType("PAT "), 128)
	require.Equal(t, toolboxerr.NoErr, err)
	assert.Equal(t, "AAAA", string(zone.Bytes(h1)))

	require.Equal(t, toolboxerr.NoErr, mgr.CloseResFile(refB))

	h2, err := mgr.GetResource(NewType("PAT "), 128)
	require.Equal(t, toolboxerr.NoErr, err)
	assert.Equal(t, "AAAA", string(zone.Bytes(h2)))
}

func TestGetResourceNotFound(t *testing.T) {
	dev := NewMemoryBlockDevice(64 * 1024)
	buildImage(t, dev, nil)

	zone := memmgr.NewZone("resources", 0)
	mgr := NewManager(zone, 0)
	ref, _ := mgr.OpenResFile("empty", dev, 0, ReadOnly, false)
	mgr.UseResFile(ref)

	_, err := mgr.GetResource(NewType("PAT "), 999)
	assert.Equal(t, toolboxerr.ResNotFound, err)
	assert.Equal(t, toolboxerr.ResNotFound, mgr.ResError())
}

func TestCloseResFileRefusedForSystemFile(t *testing.T) {
	dev := NewMemoryBlockDevice(64 * 1024)
	buildImage(t, dev, nil)

	zone := memmgr.NewZone("resources", 0)
	mgr := NewManager(zone, 0)
	ref, _ := mgr.OpenResFile("system", dev, 0, ReadOnly, true)

	err := mgr.CloseResFile(ref)
	assert.NotEqual(t, toolboxerr.NoErr, err)
}

func TestAddResourceAndUpdateResFile(t *testing.T) {
	dev := NewMemoryBlockDevice(64 * 1024)
	buildImage(t, dev, nil)

	zone := memmgr.NewZone("resources", 0)
	mgr := NewManager(zone, 0)
	ref, _ := mgr.CreateResFile("scratch", dev, 0, false)
	mgr.UseResFile(ref)

	h, _ := zone.NewHandle(4)
	zone.SetBytes(h, []byte("NEW!"))

	require.Equal(t, toolboxerr.NoErr, mgr.AddResource(h, NewType("TEST"), 1, ""))
	require.Equal(t, toolboxerr.NoErr, mgr.UpdateResFile(ref))

	got, oerr := mgr.GetResource(NewType("TEST"), 1)
	require.Equal(t, toolboxerr.NoErr, oerr)
	assert.Equal(t, "NEW!", string(zone.Bytes(got)))
}

func TestUniqueIDSkipsUsedIDs(t *testing.T) {
	dev := NewMemoryBlockDevice(64 * 1024)
	buildImage(t, dev, []entry{{typ: NewType("PAT "), id: 128, data: []byte("x")}})

	zone := memmgr.NewZone("resources", 0)
	mgr := NewManager(zone, 0)
	ref, _ := mgr.OpenResFile("f", dev, 0, ReadWrite, false)
	mgr.UseResFile(ref)

	id := mgr.UniqueID(NewType("PAT "))
	assert.NotEqual(t, ID(128), id)
}
