package fat

import (
	"context"
	"errors"
	"log/slog"
)

var errBadCluster = errors.New("fat: bad cluster marker encountered")

// slogLevelTrace is a level below Debug for the high-volume per-sector
// logging the teacher's FS uses; kept at the same offset (soypat/fat).
const slogLevelTrace = slog.LevelDebug - 2

// MaxOpenFiles bounds the Volume's open-handle table (§4.8).
const MaxOpenFiles = 8

// Volume is the mounted-filesystem controller (§4.8): it owns the
// BlockDevice, the parsed BPB, and the table of currently-open file
// handles (directory iterators are not tracked there). A Volume is not safe for concurrent use; the spec
// leaves locking to the caller.
type Volume struct {
	dev BlockDevice
	bpb *BiosParameterBlock
	log *slog.Logger

	// open tracks handles currently checked out, keyed by fd. Each handle
	// records its first cluster so a second Open of the same entry is
	// rejected (§4.8 AlreadyOpen).
	open   map[uint32]*openHandle
	nextFd uint32
}

type openHandle struct {
	fd      uint32
	cluster uint32
	isDir   bool
}

// Mount parses sector 0 of dev as a BPB and returns a Volume ready for
// traversal. A *VolumeError wrapping the BPB failure is returned on any
// validation error (§7).
func Mount(dev BlockDevice, log *slog.Logger) (*Volume, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	vol := &Volume{dev: dev, log: log, open: make(map[uint32]*openHandle)}
	vol.trace("mount")

	sector, err := readOneBlock(dev, 0, "mount:read_bpb")
	if err != nil {
		return nil, &VolumeError{Kind: VolumeDevice, Err: err}
	}
	bpb, err := ParseBPB(sector)
	if err != nil {
		bpbErr, _ := err.(*BpbError)
		vol.logerror("mount:parse_bpb", slog.String("err", err.Error()))
		return nil, &VolumeError{Kind: VolumeBpb, Bpb: bpbErr}
	}
	vol.bpb = bpb
	vol.info("mount:ok", slog.String("type", bpb.FatType.String()), slog.Uint64("clusters", uint64(bpb.ClusterCount)))
	return vol, nil
}

// BPB exposes the parsed boot sector geometry.
func (vol *Volume) BPB() *BiosParameterBlock { return vol.bpb }

// RootDir returns a fresh iterator over the volume's root directory
// (§4.5), choosing the fixed-region or clustered shape per the volume's
// FAT type.
func (vol *Volume) RootDir() *DirIterator {
	return NewDirIterator(vol, NewRootDirIterator(vol))
}

// OpenDir returns a fresh iterator over a sub-directory's entries, given
// the DirEntryInfo a parent DirIterator yielded for it. Opening a
// non-directory entry this way still iterates whatever its first cluster
// holds; callers are expected to check Attributes.IsDirectory first.
func (vol *Volume) OpenDir(info DirEntryInfo) *DirIterator {
	return NewDirIterator(vol, NewClusterSectorIterator(vol, 1, info.FirstCluster))
}

// findNextCluster reads the FAT entry for cluster in the given 1-based FAT
// copy and returns the next cluster in the chain, or nil at the end of
// chain (§4.3/§4.4). A bad-cluster marker is reported as an error rather
// than silently truncating the chain.
func (vol *Volume) findNextCluster(fatNumber int, cluster uint32) (*uint32, error) {
	loc := fatEntryLocation(vol.bpb, fatNumber, cluster)
	sector, err := readOneBlock(vol.dev, loc.Sector, "find_next_cluster")
	if err != nil {
		return nil, &VolumeError{Kind: VolumeDevice, Err: err}
	}
	entry := decodeEntry(vol.bpb, sector, loc, cluster)
	switch entry.Classify() {
	case EntryFinal, EntryFree:
		return nil, nil
	case EntryBad:
		return nil, &VolumeError{Kind: VolumeDevice, Err: &FileError{Kind: FileDevice, Err: errBadCluster}}
	default:
		next := entry.NextCluster()
		return &next, nil
	}
}

// writeFatEntry overwrites the FAT #1 entry for cluster with value.
// Deletion writes only FAT copy #1 in this revision; mirroring the write
// across the remaining NumFATs copies is explicitly out of scope (§4.10).
func (vol *Volume) writeFatEntry(cluster, value uint32) error {
	loc := fatEntryLocation(vol.bpb, 1, cluster)
	sector, err := readOneBlock(vol.dev, loc.Sector, "write_fat_entry:read")
	if err != nil {
		return &VolumeError{Kind: VolumeDevice, Err: err}
	}
	encodeEntry(vol.bpb, &sector, loc, value)
	if err := writeOneBlock(vol.dev, loc.Sector, sector); err != nil {
		return &VolumeError{Kind: VolumeDevice, Err: err}
	}
	return nil
}

// freeClusterChain walks the chain starting at startCluster: for each
// cluster it captures the next pointer before overwriting the entry with
// FREE, so a mid-walk device error never loses the pointer needed to
// resume (§4.10 step 2, mandated order). FREE writes are idempotent, so
// re-deleting an already-freed chain is safe.
func (vol *Volume) freeClusterChain(startCluster uint32) error {
	cluster := startCluster
	for cluster >= 2 {
		next, err := vol.findNextCluster(1, cluster)
		if err != nil {
			return err
		}
		if err := vol.writeFatEntry(cluster, 0); err != nil {
			return err
		}
		if next == nil {
			break
		}
		cluster = *next
	}
	return nil
}

// deleteFile closes the handle, frees the entry's cluster chain, marks its
// directory slot deleted, and walks back over the preceding LFN slots
// marking them deleted too (§4.10, §9 Open Questions on marker byte and LFN
// cleanup). Deletion is not atomic: a crash between freeing the chain and
// marking the slot leaves a live directory entry pointing at freed clusters.
func (vol *Volume) deleteFile(f *File) error {
	if f.fd == 0 {
		return &FileError{Kind: FileClosed}
	}
	info := f.info
	vol.closeFile(f)

	if info.FirstCluster >= 2 {
		if err := vol.freeClusterChain(info.FirstCluster); err != nil {
			return err
		}
	}

	if err := vol.markSlotDeleted(info.Location); err != nil {
		return err
	}
	return vol.clearPrecedingLFNSlots(info.Location)
}

// markSlotDeleted sets short_name[0] = 0xE5 at loc, the spec-correct
// marker byte (the original source's 0x5E was a documented bug; this port
// follows the corrected value per §9 Open Question 1).
func (vol *Volume) markSlotDeleted(loc PhysicalLocation) error {
	sector, err := readOneBlock(vol.dev, loc.Sector, "delete:read_slot")
	if err != nil {
		return &VolumeError{Kind: VolumeDevice, Err: err}
	}
	sector[loc.ByteOffset] = shortNameFree
	if err := writeOneBlock(vol.dev, loc.Sector, sector); err != nil {
		return &VolumeError{Kind: VolumeDevice, Err: err}
	}
	return nil
}

// clearPrecedingLFNSlots walks backwards from the short entry's slot,
// writing the deleted marker 0xE5 into the ordinal byte of each contiguous
// LFN slot that preceded it within the same sector (attribute bytes are
// left unchanged), so a stale long name cannot resurface if this slot is
// later reused (§9 Open Question 2). It stops at the start of the sector;
// LFN slots of a run that began in an earlier sector are not cleared. They
// are inert, since the directory iterator re-derives long names fresh on
// every open and a stale slot that never gets revisited as a short entry
// contributes nothing.
func (vol *Volume) clearPrecedingLFNSlots(shortLoc PhysicalLocation) error {
	if shortLoc.ByteOffset < shortEntrySize {
		return nil
	}
	sector, err := readOneBlock(vol.dev, shortLoc.Sector, "delete:read_lfn_slots")
	if err != nil {
		return &VolumeError{Kind: VolumeDevice, Err: err}
	}
	changed := false
	for off := int(shortLoc.ByteOffset) - shortEntrySize; off >= 0; off -= shortEntrySize {
		attr := Attributes(sector[off+shortOffAttr])
		if !attr.IsLFNSlot() {
			break
		}
		sector[off] = shortNameFree
		changed = true
	}
	if !changed {
		return nil
	}
	if err := writeOneBlock(vol.dev, shortLoc.Sector, sector); err != nil {
		return &VolumeError{Kind: VolumeDevice, Err: err}
	}
	return nil
}

func (vol *Volume) logattrs(level slog.Level, msg string, attrs ...slog.Attr) {
	vol.log.LogAttrs(context.Background(), level, msg, attrs...)
}
func (vol *Volume) trace(msg string, attrs ...slog.Attr)    { vol.logattrs(slogLevelTrace, msg, attrs...) }
func (vol *Volume) debug(msg string, attrs ...slog.Attr)    { vol.logattrs(slog.LevelDebug, msg, attrs...) }
func (vol *Volume) info(msg string, attrs ...slog.Attr)     { vol.logattrs(slog.LevelInfo, msg, attrs...) }
func (vol *Volume) warn(msg string, attrs ...slog.Attr)     { vol.logattrs(slog.LevelWarn, msg, attrs...) }
func (vol *Volume) logerror(msg string, attrs ...slog.Attr) { vol.logattrs(slog.LevelError, msg, attrs...) }

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
