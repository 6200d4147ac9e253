package fat

import (
	"encoding/binary"
	"log/slog"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

// listSectorSource replays a fixed list of sectors, the simplest stand-in
// for a §4.4/§4.5 sector stream a directory test needs.
type listSectorSource struct {
	sectors []BlockIdx
	i       int
}

func (s *listSectorSource) Next() (BlockIdx, bool) {
	if s.i >= len(s.sectors) {
		return 0, false
	}
	v := s.sectors[s.i]
	s.i++
	return v, true
}
func (s *listSectorSource) Err() error { return nil }

func putLFNSlot(slot []byte, ord uint8, last bool, units []uint16) {
	if last {
		ord |= lfnLastFlag
	}
	slot[lfnOffOrd] = ord
	slot[lfnOffAttr] = 0x0F
	var padded [13]uint16
	for i := range padded {
		padded[i] = 0xFFFF
	}
	copy(padded[:], units)
	if len(units) < 13 {
		padded[len(units)] = 0x0000
	}
	writeUnits(slot[lfnOffName1:lfnOffName1+10], padded[0:5])
	writeUnits(slot[lfnOffName2:lfnOffName2+12], padded[5:11])
	writeUnits(slot[lfnOffName3:lfnOffName3+4], padded[11:13])
}

func writeUnits(dst []byte, units []uint16) {
	for i, u := range units {
		binary.LittleEndian.PutUint16(dst[i*2:], u)
	}
}

func putShortEntry(slot []byte, shortName [11]byte, attr Attributes, firstCluster, fileSize uint32) {
	copy(slot[shortOffName:shortOffName+11], shortName[:])
	slot[shortOffAttr] = byte(attr)
	binary.LittleEndian.PutUint16(slot[shortOffFirstClusHi:], uint16(firstCluster>>16))
	binary.LittleEndian.PutUint16(slot[shortOffFirstClusLo:], uint16(firstCluster))
	binary.LittleEndian.PutUint32(slot[shortOffFileSize:], fileSize)
}

func ucs2Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func newTestVolume(t *testing.T, fatType FatType) (*Volume, *memDevice) {
	t.Helper()
	dev := newMemDevice(256)
	vol := &Volume{dev: dev, open: make(map[uint32]*openHandle)}
	vol.bpb = &BiosParameterBlock{
		FatType:           fatType,
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		DataStart:         10,
	}
	vol.log = discardLogger()
	return vol, dev
}

func TestDirIterator_ShortEntryOnly(t *testing.T) {
	vol, dev := newTestVolume(t, FatTypeFAT32)
	var sector Block
	var name [11]byte
	copy(name[:], "FILE    TXT")
	putShortEntry(sector[:], name, AttrArchive, 5, 123)
	require.NoError(t, dev.Write([]Block{sector}, 0))

	it := NewDirIterator(vol, &listSectorSource{sectors: []BlockIdx{0}})
	entry, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, "FILE    TXT", string(entry.ShortName[:]))
	require.EqualValues(t, 5, entry.FirstCluster)
	require.EqualValues(t, 123, entry.FileSize)
	require.Empty(t, entry.LongName)

	_, ok = it.Next()
	require.False(t, ok)
	require.NoError(t, it.Err())
}

func TestDirIterator_LFNReassembly(t *testing.T) {
	vol, dev := newTestVolume(t, FatTypeFAT32)
	var sector Block
	units := ucs2Units("hello.txt")
	putLFNSlot(sector[:shortEntrySize], 1, true, units)

	var name [11]byte
	copy(name[:], "HELLO~1TXT")
	putShortEntry(sector[shortEntrySize:2*shortEntrySize], name, AttrArchive, 7, 9)
	require.NoError(t, dev.Write([]Block{sector}, 0))

	it := NewDirIterator(vol, &listSectorSource{sectors: []BlockIdx{0}})
	entry, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, "hello.txt", entry.LongName)
	require.EqualValues(t, 7, entry.FirstCluster)
}

func TestDirIterator_FreeSlotSkippedThenEnd(t *testing.T) {
	vol, dev := newTestVolume(t, FatTypeFAT32)
	var sector Block
	sector[0*shortEntrySize+shortOffName] = shortNameFree
	sector[1*shortEntrySize+shortOffName] = shortNameEnd
	require.NoError(t, dev.Write([]Block{sector}, 0))

	it := NewDirIterator(vol, &listSectorSource{sectors: []BlockIdx{0}})
	_, ok := it.Next()
	require.False(t, ok)
	require.NoError(t, it.Err())
}

func TestDirIterator_FAT16FirstClusHiNotZero(t *testing.T) {
	vol, dev := newTestVolume(t, FatTypeFAT16)
	var sector Block
	var name [11]byte
	copy(name[:], "BAD     TXT")
	putShortEntry(sector[:], name, AttrArchive, 0x00010005, 1)
	require.NoError(t, dev.Write([]Block{sector}, 0))

	it := NewDirIterator(vol, &listSectorSource{sectors: []BlockIdx{0}})
	_, ok := it.Next()
	require.False(t, ok)
	require.Error(t, it.Err())
	var direntErr *DirEntryError
	require.ErrorAs(t, it.Err(), &direntErr)
	require.Equal(t, DirEntryFat16FirstClusHiNotZero, direntErr.Kind)
}
