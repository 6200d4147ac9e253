package fat

// sectorSource is the narrow pull interface a BlockByteCache consumes: any
// §4.4/§4.5 sector stream satisfies it.
type sectorSource interface {
	Next() (sector BlockIdx, ok bool)
	Err() error
}

// BlockByteCache holds at most one in-flight sector plus a byte cursor and
// a cumulative-bytes-read counter over an upstream sector stream (§4.6).
type BlockByteCache struct {
	vol      *Volume
	upstream sectorSource

	haveSector  bool
	sector      Block
	sectorIdx   BlockIdx
	cursor      int // byte offset within sector already consumed
	totalRead   uint32
	lengthLimit uint32 // 0 means unbounded
	err         error  // set on a failed readOneBlock of the data sector itself
}

// NewBlockByteCache wraps upstream with an optional byte-length ceiling
// (lengthLimit == 0 means unbounded, i.e. directory streams).
func NewBlockByteCache(vol *Volume, upstream sectorSource, lengthLimit uint32) *BlockByteCache {
	return &BlockByteCache{vol: vol, upstream: upstream, lengthLimit: lengthLimit}
}

// reset drops buffered data and rebinds to a fresh upstream iterator,
// restarting the cumulative counters (§4.9 ActiveFile.reset).
func (c *BlockByteCache) reset(upstream sectorSource) {
	c.upstream = upstream
	c.haveSector = false
	c.cursor = 0
	c.totalRead = 0
	c.err = nil
}

func (c *BlockByteCache) remainingInSector() int { return SectorSize - c.cursor }

func (c *BlockByteCache) remainingToLimit() uint32 {
	if c.lengthLimit == 0 {
		return ^uint32(0)
	}
	if c.totalRead >= c.lengthLimit {
		return 0
	}
	return c.lengthLimit - c.totalRead
}

// moreData pulls the next sector from the upstream iterator when the
// buffered one is exhausted and the length ceiling has not been reached
// (§4.6 more_data). Returns false when neither a buffered nor a fetchable
// sector exists.
func (c *BlockByteCache) moreData() bool {
	if c.haveSector && c.cursor < SectorSize {
		return true
	}
	if c.remainingToLimit() == 0 {
		return false
	}
	idx, ok := c.upstream.Next()
	if !ok {
		return false
	}
	sector, err := readOneBlock(c.vol.dev, idx, "bytecache:fill")
	if err != nil {
		c.err = &VolumeError{Kind: VolumeDevice, Err: err}
		return false
	}
	c.sector = sector
	c.sectorIdx = idx
	c.cursor = 0
	c.haveSector = true
	return true
}

// Err reports why reading stopped, if it wasn't legitimate exhaustion: a
// failed read of the data sector itself takes priority over the upstream
// iterator's error, since a FAT-chase failure there would have prevented
// moreData from ever reaching readOneBlock.
func (c *BlockByteCache) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.upstream.Err()
}

// read copies min(len(out), sector_remaining, length_ceiling_remaining)
// bytes, advances the cursor, and reports the sector the data came from
// (needed by the directory iterator to locate its 32-byte slot) (§4.6).
func (c *BlockByteCache) read(out []byte) (n int, fromSector BlockIdx, fromOffset int) {
	if len(out) == 0 {
		return 0, 0, 0
	}
	if !c.moreData() {
		return 0, 0, 0
	}
	want := len(out)
	if r := c.remainingInSector(); r < want {
		want = r
	}
	if limit := c.remainingToLimit(); uint32(want) > limit {
		want = int(limit)
	}
	if want <= 0 {
		return 0, 0, 0
	}
	fromSector = c.sectorIdx
	fromOffset = c.cursor
	copy(out[:want], c.sector[c.cursor:c.cursor+want])
	c.cursor += want
	c.totalRead += uint32(want)
	return want, fromSector, fromOffset
}
