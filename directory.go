package fat

import (
	"encoding/binary"

	"github.com/blockdevfs/fat16/internal/utf16x"
)

// Attributes are the bitflags stored at offset 11 of a short directory
// entry (§3).
type Attributes uint8

const (
	AttrReadOnly Attributes = 1 << iota
	AttrHidden
	AttrSystem
	AttrVolumeID
	AttrDirectory
	AttrArchive

	attrLFNMask = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

// IsLFNSlot reports whether a the entry's attribute byte marks it as a VFAT
// long-filename continuation slot rather than a real directory entry (§3).
func (a Attributes) IsLFNSlot() bool { return a&attrLFNMask == attrLFNMask }

func (a Attributes) IsDirectory() bool { return a&AttrDirectory != 0 }

const (
	shortOffName         = 0
	shortOffExt          = 8
	shortOffAttr         = 11
	shortOffFirstClusHi  = 20
	shortOffWriteTime    = 22
	shortOffWriteDate    = 24
	shortOffFirstClusLo  = 26
	shortOffFileSize     = 28
	shortEntrySize       = 32

	lfnOffOrd    = 0
	lfnOffName1  = 1  // 5 UCS-2 units
	lfnOffAttr   = 11
	lfnOffName2  = 14 // 6 UCS-2 units
	lfnOffName3  = 28 // 2 UCS-2 units

	lfnLastFlag     = 0x40
	lfnOrdMask      = 0x1F
	lfnUnitsPerSlot = 13
	maxLFNSlots     = 20 // 20 x 13 = 260 >= 256 code units (§3 LongNameRaw)
)

const (
	shortNameFree     = 0xE5
	shortNameEnd      = 0x00
	shortNameKanjiEsc = 0x05
)

// dirSlot is one 32-byte directory slot, the granularity the directory
// iterator reads at (§4.7).
type dirSlot [shortEntrySize]byte

// DirEntryInfo is the decoded identity of one directory slot: the short
// entry, its reassembled long name (if any), and the physical location of
// the 32-byte slot it came from (§3).
type DirEntryInfo struct {
	ShortName    [11]byte
	LongName     string
	Attributes   Attributes
	FileSize     uint32
	FirstCluster uint32
	Location     PhysicalLocation
}

// SameIdentity reports whether two DirEntryInfo values refer to the same
// on-disk file, by first-cluster equality (§4.8).
func (d DirEntryInfo) SameIdentity(o DirEntryInfo) bool {
	return d.FirstCluster == o.FirstCluster
}

// DirEntry pairs a DirEntryInfo with a reference to its parent, used only
// for path identity (§3); the parent is opaque to the directory iterator.
type DirEntry struct {
	Info   DirEntryInfo
	Parent any
}

// lfnAccumulator reassembles VFAT long-name fragments across slots, indexed
// by the (ord-1)*13 position the spec's algorithm places them at (§4.7).
type lfnAccumulator struct {
	units [maxLFNSlots * lfnUnitsPerSlot]uint16
	used  bool
}

func (a *lfnAccumulator) reinit() {
	a.used = true
	for i := range a.units {
		a.units[i] = 0xFFFF
	}
}

func (a *lfnAccumulator) put(ord uint8, slot dirSlot) {
	base := int(ord-1) * lfnUnitsPerSlot
	if base < 0 || base+lfnUnitsPerSlot > len(a.units) {
		return // malformed ordinal: slot silently ignored (§4.7 edge policy)
	}
	readUnits(slot[lfnOffName1:lfnOffName1+10], a.units[base:base+5])
	readUnits(slot[lfnOffName2:lfnOffName2+12], a.units[base+5:base+11])
	readUnits(slot[lfnOffName3:lfnOffName3+4], a.units[base+11:base+13])
}

func readUnits(src []byte, dst []uint16) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint16(src[i*2:])
	}
}

func (a *lfnAccumulator) decode() string {
	if !a.used {
		return ""
	}
	return utf16x.DecodeUCS2Run(a.units[:])
}

func (a *lfnAccumulator) clear() { a.used = false }

// DirIterator walks a directory's 32-byte slots, reassembling LFN fragments
// and yielding one DirEntryInfo per live short entry (§4.7). It terminates
// on the end-of-directory marker or on a decode error (Err reports which).
type DirIterator struct {
	cache   *BlockByteCache
	fatType FatType
	lfn     lfnAccumulator
	err     error
	done    bool
}

// NewDirIterator builds a directory iterator over upstream, a §4.4/§4.5
// sector stream for the directory's data.
func NewDirIterator(vol *Volume, upstream sectorSource) *DirIterator {
	return &DirIterator{cache: NewBlockByteCache(vol, upstream, 0), fatType: vol.bpb.FatType}
}

func (it *DirIterator) Err() error { return it.err }

// Next returns the next live directory entry, skipping LFN continuation
// slots (folded into the accumulator) and free slots.
func (it *DirIterator) Next() (DirEntryInfo, bool) {
	for {
		if it.done {
			return DirEntryInfo{}, false
		}
		var slot dirSlot
		n, sector, offset := it.cache.read(slot[:])
		if n < shortEntrySize {
			if err := it.cache.Err(); err != nil {
				it.err = err
			}
			it.done = true
			return DirEntryInfo{}, false
		}

		attr := Attributes(slot[shortOffAttr])
		if attr.IsLFNSlot() {
			ord := slot[lfnOffOrd]
			if ord&lfnLastFlag != 0 {
				it.lfn.reinit()
			}
			if it.lfn.used {
				it.lfn.put(ord&lfnOrdMask, slot)
			}
			continue
		}

		switch slot[shortOffName] {
		case shortNameEnd:
			it.done = true
			return DirEntryInfo{}, false
		case shortNameFree, shortNameKanjiEsc:
			it.lfn.clear()
			continue
		}

		var info DirEntryInfo
		var err error
		if it.fatType == FatTypeFAT16 {
			info, err = decodeShortEntryFAT16(slot, attr, sector, offset)
		} else {
			info, err = decodeShortEntry(slot, attr, sector, offset)
		}
		if it.lfn.used {
			info.LongName = it.lfn.decode()
		}
		it.lfn.clear()
		if err != nil {
			it.err = err
			it.done = true
			return DirEntryInfo{}, false
		}
		return info, true
	}
}

func decodeShortEntry(slot dirSlot, attr Attributes, sector BlockIdx, offset int) (DirEntryInfo, error) {
	hi := binary.LittleEndian.Uint16(slot[shortOffFirstClusHi:])
	lo := binary.LittleEndian.Uint16(slot[shortOffFirstClusLo:])

	info := DirEntryInfo{
		Attributes: attr,
		FileSize:   binary.LittleEndian.Uint32(slot[shortOffFileSize:]),
		Location:   PhysicalLocation{Sector: sector, ByteOffset: uint16(offset)},
	}
	copy(info.ShortName[:], slot[shortOffName:shortOffName+11])
	info.FirstCluster = uint32(hi)<<16 | uint32(lo)
	return info, nil
}

// decodeShortEntryFAT16 applies the FAT16-only constraint that the high
// cluster word must be zero, surfacing DirEntryError on violation. Callers
// on a FAT16 volume use this instead of decodeShortEntry's unconditional
// combine (§4.7).
func decodeShortEntryFAT16(slot dirSlot, attr Attributes, sector BlockIdx, offset int) (DirEntryInfo, error) {
	hi := binary.LittleEndian.Uint16(slot[shortOffFirstClusHi:])
	if hi != 0 {
		return DirEntryInfo{}, &DirEntryError{Kind: DirEntryFat16FirstClusHiNotZero}
	}
	return decodeShortEntry(slot, attr, sector, offset)
}
