package fat

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildFAT16Sector returns a valid FAT16 boot sector: 512 bytes/sector,
// 4 sectors/cluster, 2 FATs of 17 sectors each, a 512-entry (32-sector)
// root, yielding a cluster count of 4285 (just above the FAT16 floor).
func buildFAT16Sector() [SectorSize]byte {
	var s [SectorSize]byte
	binary.LittleEndian.PutUint16(s[offBytesPerSector:], 512)
	s[offSecPerCluster] = 4
	binary.LittleEndian.PutUint16(s[offReservedSecCnt:], 1)
	s[offNumFATs] = 2
	binary.LittleEndian.PutUint16(s[offRootEntCnt:], 512)
	binary.LittleEndian.PutUint16(s[offTotSec16:], 17207)
	s[offMedia] = 0xF8
	binary.LittleEndian.PutUint16(s[offFATSz16:], 17)
	binary.LittleEndian.PutUint16(s[offSignature:], 0xAA55)
	return s
}

// buildFAT32Sector returns a valid FAT32 boot sector with a cluster count
// of 70000 (above the FAT32 floor).
func buildFAT32Sector() [SectorSize]byte {
	var s [SectorSize]byte
	binary.LittleEndian.PutUint16(s[offBytesPerSector:], 512)
	s[offSecPerCluster] = 8
	binary.LittleEndian.PutUint16(s[offReservedSecCnt:], 32)
	s[offNumFATs] = 2
	binary.LittleEndian.PutUint16(s[offRootEntCnt:], 0)
	binary.LittleEndian.PutUint16(s[offTotSec16:], 0)
	binary.LittleEndian.PutUint32(s[offTotSec32:], 561126)
	s[offMedia] = 0xF8
	binary.LittleEndian.PutUint16(s[offFATSz16:], 0)
	binary.LittleEndian.PutUint32(s[offFATSz32:], 547)
	binary.LittleEndian.PutUint16(s[offFSVer32:], 0)
	binary.LittleEndian.PutUint32(s[offRootCluster32:], 2)
	binary.LittleEndian.PutUint16(s[offBackupBoot32:], 6)
	binary.LittleEndian.PutUint16(s[offSignature:], 0xAA55)
	return s
}

func TestParseBPB_FAT16(t *testing.T) {
	bpb, err := ParseBPB(buildFAT16Sector())
	require.NoError(t, err)
	require.Equal(t, FatTypeFAT16, bpb.FatType)
	require.EqualValues(t, 1, bpb.FatStart)
	require.EqualValues(t, 34, bpb.FatLen)
	require.EqualValues(t, 35, bpb.RootStart)
	require.EqualValues(t, 32, bpb.RootLen)
	require.EqualValues(t, 67, bpb.DataStart)
	require.EqualValues(t, 4285, bpb.ClusterCount)
	require.EqualValues(t, 4286, bpb.MaximumValidCluster)
}

func TestParseBPB_FAT32(t *testing.T) {
	bpb, err := ParseBPB(buildFAT32Sector())
	require.NoError(t, err)
	require.Equal(t, FatTypeFAT32, bpb.FatType)
	require.EqualValues(t, 2, bpb.RootCluster)
	require.EqualValues(t, 0, bpb.RootLen)
	require.EqualValues(t, 70000, bpb.ClusterCount)
}

func TestParseBPB_InvalidSignature(t *testing.T) {
	s := buildFAT16Sector()
	s[offSignature] = 0
	_, err := ParseBPB(s)
	require.Error(t, err)
	var bpbErr *BpbError
	require.ErrorAs(t, err, &bpbErr)
	require.Equal(t, BpbInvalidSignature, bpbErr.Kind)
}

func TestParseBPB_InvalidBytesPerSector(t *testing.T) {
	s := buildFAT16Sector()
	binary.LittleEndian.PutUint16(s[offBytesPerSector:], 513)
	_, err := ParseBPB(s)
	var bpbErr *BpbError
	require.ErrorAs(t, err, &bpbErr)
	require.Equal(t, BpbInvalidBytesPerSector, bpbErr.Kind)
}

func TestParseBPB_InvalidSectorsPerCluster(t *testing.T) {
	s := buildFAT16Sector()
	s[offSecPerCluster] = 3 // not a power of two
	_, err := ParseBPB(s)
	var bpbErr *BpbError
	require.ErrorAs(t, err, &bpbErr)
	require.Equal(t, BpbInvalidSectorsPerCluster, bpbErr.Kind)
}

func TestParseBPB_ReservedSectorCountZero(t *testing.T) {
	s := buildFAT16Sector()
	binary.LittleEndian.PutUint16(s[offReservedSecCnt:], 0)
	_, err := ParseBPB(s)
	var bpbErr *BpbError
	require.ErrorAs(t, err, &bpbErr)
	require.Equal(t, BpbReservedSectorCountZero, bpbErr.Kind)
}

func TestParseBPB_InvalidMedia(t *testing.T) {
	s := buildFAT16Sector()
	s[offMedia] = 0x01
	_, err := ParseBPB(s)
	var bpbErr *BpbError
	require.ErrorAs(t, err, &bpbErr)
	require.Equal(t, BpbInvalidMedia, bpbErr.Kind)
}

func TestParseBPB_BothFatSizesZero(t *testing.T) {
	s := buildFAT16Sector()
	binary.LittleEndian.PutUint16(s[offFATSz16:], 0)
	_, err := ParseBPB(s)
	var bpbErr *BpbError
	require.ErrorAs(t, err, &bpbErr)
	require.Equal(t, BpbBothSectorCountsZero, bpbErr.Kind)
}

func TestParseBPB_BothTotalSectorsNonZero(t *testing.T) {
	s := buildFAT16Sector()
	binary.LittleEndian.PutUint32(s[offTotSec32:], 1)
	_, err := ParseBPB(s)
	var bpbErr *BpbError
	require.ErrorAs(t, err, &bpbErr)
	require.Equal(t, BpbBothSectorCountsNotZero, bpbErr.Kind)
}

func TestParseBPB_FAT32_RootEntryCountMustBeZero(t *testing.T) {
	s := buildFAT32Sector()
	binary.LittleEndian.PutUint16(s[offRootEntCnt:], 16)
	_, err := ParseBPB(s)
	var bpbErr *BpbError
	require.ErrorAs(t, err, &bpbErr)
	require.Equal(t, BpbFat32, bpbErr.Kind)
	require.Equal(t, Fat32RootEntryCountNotZero, bpbErr.Fat32.Kind)
}

func TestParseBPB_FAT32_RootClusterLessThanTwo(t *testing.T) {
	s := buildFAT32Sector()
	binary.LittleEndian.PutUint32(s[offRootCluster32:], 1)
	_, err := ParseBPB(s)
	var bpbErr *BpbError
	require.ErrorAs(t, err, &bpbErr)
	require.Equal(t, Fat32RootClusterLessThanTwo, bpbErr.Fat32.Kind)
}

func TestParseBPB_FAT32_InvalidBackupBootSector(t *testing.T) {
	s := buildFAT32Sector()
	binary.LittleEndian.PutUint16(s[offBackupBoot32:], 3)
	_, err := ParseBPB(s)
	var bpbErr *BpbError
	require.ErrorAs(t, err, &bpbErr)
	require.Equal(t, Fat32InvalidBackupBootSector, bpbErr.Fat32.Kind)
}
