package main

import (
	"fmt"
	"os"

	fat "github.com/blockdevfs/fat16"
)

// fileBlockDevice adapts an *os.File to fat.BlockDevice via ReadAt/WriteAt,
// the natural host-side stand-in for the SPI/SDMMC driver the core
// otherwise expects (§6.1 in the core's own terms: out of scope, supplied
// by the caller).
type fileBlockDevice struct {
	f     *os.File
	nblks fat.BlockCount
}

func openFileBlockDevice(path string) (*fileBlockDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size()%fat.SectorSize != 0 {
		f.Close()
		return nil, fmt.Errorf("fatls: %s size %d is not a multiple of the sector size", path, info.Size())
	}
	return &fileBlockDevice{f: f, nblks: fat.BlockCount(info.Size() / fat.SectorSize)}, nil
}

func (d *fileBlockDevice) Close() error { return d.f.Close() }

func (d *fileBlockDevice) Read(dst []fat.Block, startIdx fat.BlockIdx, reason string) error {
	off := int64(startIdx) * fat.SectorSize
	for i := range dst {
		if _, err := d.f.ReadAt(dst[i][:], off); err != nil {
			return fmt.Errorf("fatls: read (%s): %w", reason, err)
		}
		off += fat.SectorSize
	}
	return nil
}

func (d *fileBlockDevice) Write(src []fat.Block, startIdx fat.BlockIdx) error {
	off := int64(startIdx) * fat.SectorSize
	for i := range src {
		if _, err := d.f.WriteAt(src[i][:], off); err != nil {
			return fmt.Errorf("fatls: write: %w", err)
		}
		off += fat.SectorSize
	}
	return nil
}

func (d *fileBlockDevice) NumBlocks() (fat.BlockCount, error) { return d.nblks, nil }
