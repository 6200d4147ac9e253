package fat

import "fmt"

// memDevice is an in-memory BlockDevice test double, grounded on the
// teacher's BytesBlocks (soypat-fat/fat_test.go): a flat byte buffer sliced
// into fixed-size blocks, with the same out-of-range reporting style.
type memDevice struct {
	blocks []Block

	// failSectors, when non-nil, names sectors whose Read should fail
	// with a synthetic device error instead of serving buffered data —
	// used to exercise read-failure propagation without a real device.
	failSectors map[BlockIdx]bool
}

func newMemDevice(numBlocks int) *memDevice {
	return &memDevice{blocks: make([]Block, numBlocks)}
}

func (d *memDevice) failAt(idx BlockIdx) {
	if d.failSectors == nil {
		d.failSectors = make(map[BlockIdx]bool)
	}
	d.failSectors[idx] = true
}

func (d *memDevice) Read(dst []Block, startIdx BlockIdx, reason string) error {
	end := int(startIdx) + len(dst)
	if end > len(d.blocks) {
		return fmt.Errorf("memdevice: read past end of buffer: %d > %d", end, len(d.blocks))
	}
	for i := range dst {
		if d.failSectors[startIdx+BlockIdx(i)] {
			return fmt.Errorf("memdevice: injected read failure at sector %d", startIdx+BlockIdx(i))
		}
	}
	copy(dst, d.blocks[startIdx:end])
	return nil
}

func (d *memDevice) Write(src []Block, startIdx BlockIdx) error {
	end := int(startIdx) + len(src)
	if end > len(d.blocks) {
		return fmt.Errorf("memdevice: write past end of buffer: %d > %d", end, len(d.blocks))
	}
	copy(d.blocks[startIdx:end], src)
	return nil
}

func (d *memDevice) NumBlocks() (BlockCount, error) { return BlockCount(len(d.blocks)), nil }
