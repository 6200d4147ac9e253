package fat

import "encoding/binary"

// Offsets into sector 0, matching the teacher's tables.go naming (the
// bpbXxx/bsXxx constants from soypat/fat, trimmed to the fields this spec
// actually decodes — no codepage/exFAT/format fields).
const (
	offJmpBoot        = 0
	offOEMName        = 3
	offBytesPerSector = 11
	offSecPerCluster  = 13
	offReservedSecCnt = 14
	offNumFATs        = 16
	offRootEntCnt     = 17
	offTotSec16       = 19
	offMedia          = 21
	offFATSz16        = 22
	offTotSec32       = 32

	offFATSz32        = 36
	offFSVer32        = 42
	offRootCluster32  = 44
	offBackupBoot32   = 50

	offSignature = 510
)

// FatType identifies the on-disk FAT subtype, derived from cluster count (§3).
type FatType uint8

const (
	FatTypeUnsupportedFAT12 FatType = iota
	FatTypeFAT16
	FatTypeFAT32
)

func (t FatType) String() string {
	switch t {
	case FatTypeFAT16:
		return "FAT16"
	case FatTypeFAT32:
		return "FAT32"
	default:
		return "FAT12(unsupported)"
	}
}

// BiosParameterBlock holds the raw boot sector bytes and the geometry
// derived from them (§3). It is immutable after ParseBPB succeeds.
type BiosParameterBlock struct {
	data [SectorSize]byte

	BytesPerSector      uint16
	SectorsPerCluster   uint8
	ReservedSectorCount uint16
	NumFATs             uint8
	RootEntryCount      uint16
	FatSize             uint32 // sectors per single FAT
	TotalSectors        uint32
	Media               byte
	FatType             FatType
	RootCluster         uint32 // FAT32 only

	// Derived geometry (§3), invariant for the volume's lifetime.
	FatStart            BlockIdx
	FatLen              BlockCount
	RootStart           BlockIdx
	RootLen             BlockCount
	DataStart           BlockIdx
	ClusterCount        uint32
	MaximumValidCluster uint32
}

func isValidBytesPerSector(v uint16) bool {
	switch v {
	case 512, 1024, 2048, 4096:
		return true
	default:
		return false
	}
}

func isValidSectorsPerCluster(v uint8) bool {
	return v != 0 && v&(v-1) == 0 && v <= 128
}

func isValidMedia(v byte) bool {
	return v == 0xF0 || v >= 0xF8
}

// ParseBPB parses and validates sector 0 of a volume per §3/§6.2. It
// returns a *BpbError on any validation failure.
func ParseBPB(sector [SectorSize]byte) (*BiosParameterBlock, error) {
	bpb := &BiosParameterBlock{data: sector}
	d := bpb.data[:]

	if binary.LittleEndian.Uint16(d[offSignature:]) != 0xAA55 {
		return nil, &BpbError{Kind: BpbInvalidSignature, Signature: [2]byte{d[offSignature], d[offSignature+1]}}
	}

	bps := binary.LittleEndian.Uint16(d[offBytesPerSector:])
	if !isValidBytesPerSector(bps) {
		return nil, &BpbError{Kind: BpbInvalidBytesPerSector, ValueU16: bps}
	}
	bpb.BytesPerSector = bps

	spc := d[offSecPerCluster]
	if !isValidSectorsPerCluster(spc) {
		return nil, &BpbError{Kind: BpbInvalidSectorsPerCluster, ValueU8: spc}
	}
	bpb.SectorsPerCluster = spc

	rsvd := binary.LittleEndian.Uint16(d[offReservedSecCnt:])
	if rsvd == 0 {
		return nil, &BpbError{Kind: BpbReservedSectorCountZero}
	}
	bpb.ReservedSectorCount = rsvd

	nFATs := d[offNumFATs]
	if nFATs == 0 {
		return nil, &BpbError{Kind: BpbNumFATsZero}
	}
	bpb.NumFATs = nFATs

	rootEntCnt := binary.LittleEndian.Uint16(d[offRootEntCnt:])
	media := d[offMedia]
	if !isValidMedia(media) {
		return nil, &BpbError{Kind: BpbInvalidMedia, ValueU8: media}
	}
	bpb.Media = media

	fatSz16 := uint32(binary.LittleEndian.Uint16(d[offFATSz16:]))
	fatSz32 := binary.LittleEndian.Uint32(d[offFATSz32:])
	var fatSize uint32
	switch {
	case fatSz16 != 0 && fatSz32 == 0:
		fatSize = fatSz16
	case fatSz16 == 0 && fatSz32 != 0:
		fatSize = fatSz32
	case fatSz16 == 0 && fatSz32 == 0:
		return nil, &BpbError{Kind: BpbBothSectorCountsZero}
	default:
		return nil, &BpbError{Kind: BpbBothSectorCountsNotZero}
	}
	bpb.FatSize = fatSize

	totSec16 := uint32(binary.LittleEndian.Uint16(d[offTotSec16:]))
	totSec32 := binary.LittleEndian.Uint32(d[offTotSec32:])
	var totalSectors uint32
	switch {
	case totSec16 != 0 && totSec32 == 0:
		totalSectors = totSec16
	case totSec16 == 0 && totSec32 != 0:
		totalSectors = totSec32
	case totSec16 == 0 && totSec32 == 0:
		return nil, &BpbError{Kind: BpbBothSectorCountsZero}
	default:
		return nil, &BpbError{Kind: BpbBothSectorCountsNotZero}
	}
	bpb.TotalSectors = totalSectors

	fatLen := uint32(nFATs) * fatSize
	fatStart := uint32(rsvd)
	rootStart := fatStart + fatLen

	var rootLen uint32
	if rootEntCnt != 0 {
		// FAT16 shape: validate sector alignment (§3).
		if uint32(rootEntCnt)*32%uint32(bps) != 0 {
			return nil, &BpbError{Kind: BpbRootEntryCountSize}
		}
		rootLen = (uint32(rootEntCnt)*32 + uint32(bps) - 1) / uint32(bps)
	}
	bpb.RootEntryCount = rootEntCnt

	dataStart := rootStart + rootLen
	nonDataSectors := rsvd32(rsvd) + fatLen + rootLen
	if totalSectors < nonDataSectors {
		return nil, &BpbError{Kind: BpbRootEntryCountSize}
	}
	clusterCount := (totalSectors - nonDataSectors) / uint32(spc)

	bpb.FatType = classifyFatType(clusterCount)
	if bpb.FatType == FatTypeUnsupportedFAT12 {
		return nil, &BpbError{Kind: BpbFat12NotSupported}
	}

	if bpb.FatType == FatTypeFAT32 {
		if rootEntCnt != 0 {
			return nil, &BpbError{Kind: BpbFat32, Fat32: &Fat32BpbError{Kind: Fat32RootEntryCountNotZero}}
		}
		if totSec16 != 0 {
			return nil, &BpbError{Kind: BpbFat32, Fat32: &Fat32BpbError{Kind: Fat32Count16NotZero}}
		}
		if fatSz16 != 0 {
			return nil, &BpbError{Kind: BpbFat32, Fat32: &Fat32BpbError{Kind: Fat32FatSize16NotZero}}
		}
		fsVer := binary.LittleEndian.Uint16(d[offFSVer32:])
		if fsVer != 0 {
			return nil, &BpbError{Kind: BpbFat32, Fat32: &Fat32BpbError{Kind: Fat32FsVerNotZero, Value: fsVer}}
		}
		rootClus := binary.LittleEndian.Uint32(d[offRootCluster32:])
		if rootClus < 2 {
			return nil, &BpbError{Kind: BpbFat32, Fat32: &Fat32BpbError{Kind: Fat32RootClusterLessThanTwo}}
		}
		bpb.RootCluster = rootClus
		backup := binary.LittleEndian.Uint16(d[offBackupBoot32:])
		if backup != 0 && backup != 6 {
			return nil, &BpbError{Kind: BpbFat32, Fat32: &Fat32BpbError{Kind: Fat32InvalidBackupBootSector, Value: backup}}
		}
	} else {
		if rootEntCnt == 0 {
			return nil, &BpbError{Kind: BpbRootEntryCountSize}
		}
	}

	bpb.FatStart = BlockIdx(fatStart)
	bpb.FatLen = BlockCount(fatLen)
	bpb.RootStart = BlockIdx(rootStart)
	bpb.RootLen = BlockCount(rootLen)
	bpb.DataStart = BlockIdx(dataStart)
	bpb.ClusterCount = clusterCount
	bpb.MaximumValidCluster = clusterCount + 1

	return bpb, nil
}

func rsvd32(v uint16) uint32 { return uint32(v) }

// classifyFatType derives the FAT subtype from cluster count (§3).
func classifyFatType(clusterCount uint32) FatType {
	switch {
	case clusterCount < 4085:
		return FatTypeUnsupportedFAT12
	case clusterCount < 65525:
		return FatTypeFAT16
	default:
		return FatTypeFAT32
	}
}

// entryWidth returns the width in bytes of one FAT entry for t.
func (t FatType) entryWidth() int {
	if t == FatTypeFAT16 {
		return 2
	}
	return 4
}
