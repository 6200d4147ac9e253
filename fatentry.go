package fat

import "encoding/binary"

// PhysicalLocation pins the sector and byte offset of a FAT entry or a
// directory slot so writes do not require re-deriving the address (§3).
type PhysicalLocation struct {
	Sector     BlockIdx
	ByteOffset uint16
}

const (
	fat16Free  uint32 = 0x0000
	fat16Bad   uint32 = 0xFFF7
	fat32Free  uint32 = 0x00000000
	fat32Bad   uint32 = 0x0FFFFFF7
	fat32Mask  uint32 = 0x0FFFFFFF
)

// EntryClass classifies a decoded FAT entry value (§3).
type EntryClass uint8

const (
	EntryFree EntryClass = iota
	EntryBad
	EntryFinal
	EntryNext
	EntryReserved
)

// Entry is a decoded FAT table entry plus the physical location it was
// read from, so a subsequent write does not need to re-derive the address.
type Entry struct {
	fatType  FatType
	Value    uint32
	Location PhysicalLocation
}

// Classify categorizes the entry per the ranges in §3. Reserved values
// (0xFFF0..0xFFF6 / 0x0FFFFFF0..0x0FFFFFF6) classify as EntryReserved but
// §9 Open Question 5 records that the source (and this port) still treats
// them as valid forward pointers in NextCluster.
func (e Entry) Classify() EntryClass {
	if e.fatType == FatTypeFAT16 {
		switch {
		case e.Value == 0:
			return EntryFree
		case e.Value == 1:
			return EntryReserved
		case e.Value == fat16Bad:
			return EntryBad
		case e.Value >= 0xFFF8 && e.Value <= 0xFFFF:
			return EntryFinal
		case e.Value >= 0xFFF0 && e.Value <= 0xFFF6:
			return EntryReserved
		default:
			return EntryNext
		}
	}
	v := e.Value & fat32Mask
	switch {
	case v == 0:
		return EntryFree
	case v == 1:
		return EntryReserved
	case v == fat32Bad:
		return EntryBad
	case v >= 0x0FFFFFF8 && v <= 0x0FFFFFFF:
		return EntryFinal
	case v >= 0x0FFFFFF0 && v <= 0x0FFFFFF6:
		return EntryReserved
	default:
		return EntryNext
	}
}

// NextCluster returns the forward pointer this entry carries. It is only
// meaningful when Classify reports EntryNext or EntryReserved (§9 Open
// Question 5 — reserved values are followed as pointers, not rejected).
func (e Entry) NextCluster() uint32 {
	if e.fatType == FatTypeFAT16 {
		return e.Value
	}
	return e.Value & fat32Mask
}

// fatEntryLocation computes the (sector, byte offset) of entry_index
// within the given FAT copy (1-based fatNumber), per §4.3.
func fatEntryLocation(bpb *BiosParameterBlock, fatNumber int, entryIndex uint32) PhysicalLocation {
	width := uint32(bpb.FatType.entryWidth())
	fatOffset := entryIndex * width
	sector := uint32(bpb.ReservedSectorCount) + fatOffset/uint32(bpb.BytesPerSector)
	if fatNumber > 1 {
		sector += uint32(fatNumber-1) * bpb.FatSize
	}
	byteOffset := fatOffset % uint32(bpb.BytesPerSector)
	return PhysicalLocation{Sector: BlockIdx(sector), ByteOffset: uint16(byteOffset)}
}

// decodeEntry decodes the FAT entry at entryIndex out of the given sector
// contents (the sector must be the one fatEntryLocation named).
func decodeEntry(bpb *BiosParameterBlock, sector Block, loc PhysicalLocation, entryIndex uint32) Entry {
	var v uint32
	if bpb.FatType == FatTypeFAT16 {
		v = uint32(binary.LittleEndian.Uint16(sector[loc.ByteOffset:]))
	} else {
		v = binary.LittleEndian.Uint32(sector[loc.ByteOffset:]) & fat32Mask
	}
	return Entry{fatType: bpb.FatType, Value: v, Location: loc}
}

// encodeEntry serialises value into the correct width at the entry's
// location inside sector, in place.
func encodeEntry(bpb *BiosParameterBlock, sector *Block, loc PhysicalLocation, value uint32) {
	if bpb.FatType == FatTypeFAT16 {
		binary.LittleEndian.PutUint16(sector[loc.ByteOffset:], uint16(value))
		return
	}
	// FAT32 entries are 28 bits; preserve the reserved upper nibble already
	// on disk rather than assuming it is zero (§3).
	existing := binary.LittleEndian.Uint32(sector[loc.ByteOffset:])
	merged := (existing &^ fat32Mask) | (value & fat32Mask)
	binary.LittleEndian.PutUint32(sector[loc.ByteOffset:], merged)
}
