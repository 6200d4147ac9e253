package fat

import "log/slog"

// OpenMode is the access mode a File was opened with (§4.8).
type OpenMode uint8

const (
	ModeReadOnly OpenMode = iota
	ModeReadWrite
)

// File is a handle into a Volume's open-entry table: an fd, the mode it
// was opened with, and the DirEntryInfo that is its identity for
// open-tracking (§4.8, §4.9). It performs no I/O itself — that requires
// activating it against a Volume.
type File struct {
	fd   uint32
	mode OpenMode
	info DirEntryInfo
}

// Info returns the DirEntryInfo this handle was opened against.
func (f *File) Info() DirEntryInfo { return f.info }

// IsOpen reports whether f still holds a live slot in its volume's table.
func (f *File) IsOpen() bool { return f.fd != 0 }

// OpenFile allocates a handle for info (§4.8 open_file). Directories are
// rejected; re-opening an entry that is already open is rejected and
// returns the caller's DirEntryInfo back so ownership is never lost (§7).
func (vol *Volume) OpenFile(info DirEntryInfo, mode OpenMode) (*File, error) {
	if info.Attributes.IsDirectory() {
		d := info
		return nil, &VolumeError{Kind: VolumeIsDirectory, DirEntry: &d}
	}
	for _, h := range vol.open {
		if !h.isDir && h.cluster == info.FirstCluster {
			d := info
			return nil, &VolumeError{Kind: VolumeAlreadyOpen, DirEntry: &d}
		}
	}
	if len(vol.open) >= MaxOpenFiles {
		d := info
		return nil, &VolumeError{Kind: VolumeTooManyOpenFiles, DirEntry: &d}
	}

	vol.nextFd++
	fd := vol.nextFd
	vol.open[fd] = &openHandle{fd: fd, cluster: info.FirstCluster, isDir: false}
	vol.trace("open_file", slog.Uint64("fd", uint64(fd)), slog.Uint64("cluster", uint64(info.FirstCluster)))
	return &File{fd: fd, mode: mode, info: info}, nil
}

// closeFile clears f's slot in the open-entry table. Idempotent: closing
// an already-closed file is a no-op (§4.8).
func (vol *Volume) closeFile(f *File) {
	if f.fd == 0 {
		return
	}
	delete(vol.open, f.fd)
	vol.trace("close_file", slog.Uint64("fd", uint64(f.fd)))
	f.fd = 0
}

// CloseFile is the exported form of closeFile.
func (vol *Volume) CloseFile(f *File) { vol.closeFile(f) }

// DeleteFile closes f, frees its cluster chain, and marks its directory
// slot deleted (§4.10).
func (vol *Volume) DeleteFile(f *File) error { return vol.deleteFile(f) }

// ActiveFile is a scoped borrow of (File, Volume) that enables I/O (§4.9).
// Only one ActiveFile may exist per File at a time; the spec leaves that
// invariant to the caller rather than enforcing it at runtime.
type ActiveFile struct {
	file  *File
	vol   *Volume
	iter  *ClusterSectorIterator
	cache *BlockByteCache
}

// Activate binds f to vol for the scope of subsequent calls. It returns
// ok=false if f's fd is no longer present in the table (post-close use).
func (f *File) Activate(vol *Volume) (*ActiveFile, bool) {
	if _, open := vol.open[f.fd]; !open {
		return nil, false
	}
	af := &ActiveFile{file: f, vol: vol}
	af.reset()
	return af, true
}

// reset rebuilds the sector iterator from the file's first cluster and
// clears the byte cache (§4.9).
func (af *ActiveFile) reset() {
	af.iter = NewClusterSectorIterator(af.vol, 1, af.file.info.FirstCluster)
	if af.cache == nil {
		af.cache = NewBlockByteCache(af.vol, af.iter, af.file.info.FileSize)
	} else {
		af.cache.lengthLimit = af.file.info.FileSize
		af.cache.reset(af.iter)
	}
}

// Reset is the exported form of reset (§4.9 ActiveFile.reset).
func (af *ActiveFile) Reset() { af.reset() }

// Read loops pulling through the byte cache until out is filled, the
// file's size limit is reached, or the chain ends. A partial read is
// legitimate and terminal: the caller sees it as the final read (§4.9).
func (af *ActiveFile) Read(out []byte) (int, error) {
	if af.file.fd == 0 {
		return 0, &FileError{Kind: FileClosed}
	}
	total := 0
	for total < len(out) {
		n, _, _ := af.cache.read(out[total:])
		if n == 0 {
			break
		}
		total += n
	}
	if err := af.cache.Err(); err != nil {
		return total, &FileError{Kind: FileDevice, Err: err}
	}
	return total, nil
}

// Write returns FileNotWritable in ReadOnly mode. ReadWrite mode is
// accepted by OpenFile but write itself is unimplemented in this
// revision (extending a cluster chain is a Non-goal) and also reports
// FileNotWritable.
func (af *ActiveFile) Write(in []byte) (int, error) {
	if af.file.fd == 0 {
		return 0, &FileError{Kind: FileClosed}
	}
	return 0, &FileError{Kind: FileNotWritable}
}

// Release returns the underlying File, ending the activation.
func (af *ActiveFile) Release() *File {
	f := af.file
	af.file = nil
	return f
}
