package fat

import (
	"github.com/blockdevfs/fat16/internal/mbr"
)

// PartitionBlockDevice is a BlockDevice view scoped to one MBR partition:
// every access is offset by the partition's LBA start and range-checked
// against its block count (§4.2).
type PartitionBlockDevice struct {
	underlying BlockDevice
	lbaStart   BlockIdx
	blockCount BlockCount
}

// OpenPartition parses the MBR at sector 0 of dev and returns a
// PartitionBlockDevice for the idx'th (0-based) partition table entry
// (§4.2). It rejects an invalid footer signature or partition status, but
// does not reject an unrecognised partition type — that is left to the
// caller (mirroring the source's permissive MBR layer).
func OpenPartition(dev BlockDevice, idx int) (*PartitionBlockDevice, mbr.PartitionRecord, error) {
	sector, err := readOneBlock(dev, 0, "open_partition:read_mbr")
	if err != nil {
		return nil, mbr.PartitionRecord{}, &MbrError{Kind: MbrDevice, Err: err}
	}
	boot, err := mbr.Parse(sector[:])
	if err != nil {
		return nil, mbr.PartitionRecord{}, &MbrError{Kind: MbrInfoTooShort, Err: err}
	}
	if boot.BootSignature() != mbr.Signature {
		return nil, mbr.PartitionRecord{}, &MbrError{Kind: MbrInvalidSignature}
	}
	rec, err := boot.Partition(idx)
	if err != nil {
		return nil, mbr.PartitionRecord{}, &MbrError{Kind: MbrPartitionIndexOutOfRange, Index: idx}
	}
	if !rec.Status.Valid() {
		return nil, mbr.PartitionRecord{}, &MbrError{Kind: MbrInvalidPartitionStatus, Value: byte(rec.Status)}
	}
	pbd := &PartitionBlockDevice{
		underlying: dev,
		lbaStart:   BlockIdx(rec.LBAStart),
		blockCount: BlockCount(rec.BlockCount),
	}
	return pbd, rec, nil
}

func (p *PartitionBlockDevice) checkRange(startIdx BlockIdx, n uint32) error {
	if uint32(startIdx)+n > uint32(p.blockCount) {
		return &PartitionError{Kind: PartitionOutOfRange, PartitionBlockCount: p.blockCount}
	}
	return nil
}

// Read implements BlockDevice, translating partition-relative addresses
// to absolute ones and rejecting out-of-range accesses (§4.2).
func (p *PartitionBlockDevice) Read(dst []Block, startIdx BlockIdx, reason string) error {
	if err := p.checkRange(startIdx, uint32(len(dst))); err != nil {
		return err
	}
	if err := p.underlying.Read(dst, p.lbaStart+startIdx, reason); err != nil {
		return &PartitionError{Kind: PartitionDevice, Err: err}
	}
	return nil
}

// Write implements BlockDevice, translating partition-relative addresses
// to absolute ones and rejecting out-of-range accesses (§4.2).
func (p *PartitionBlockDevice) Write(src []Block, startIdx BlockIdx) error {
	if err := p.checkRange(startIdx, uint32(len(src))); err != nil {
		return err
	}
	if err := p.underlying.Write(src, p.lbaStart+startIdx); err != nil {
		return &PartitionError{Kind: PartitionDevice, Err: err}
	}
	return nil
}

// NumBlocks reports the partition's own block count, not the underlying
// device's.
func (p *PartitionBlockDevice) NumBlocks() (BlockCount, error) { return p.blockCount, nil }
