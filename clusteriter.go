package fat

// ClusterSectorIterator yields sectors across an arbitrary-length cluster
// chain, one cluster's worth of contiguous sectors at a time (§4.4). It is
// single-pass: a File resets by constructing a fresh iterator from its
// first cluster, it never rewinds in place.
type ClusterSectorIterator struct {
	vol           *Volume
	fatNumber     int
	sectorsPerClu uint32
	dataStart     BlockIdx

	cluster    uint32 // current cluster; done marks exhaustion
	sectorIdx  uint32 // next intra-cluster sector offset to yield
	done       bool
	err        error
}

// NewClusterSectorIterator starts iteration at startCluster. A startCluster
// of 0 or 1 yields nothing (empty file / unallocated chain).
func NewClusterSectorIterator(vol *Volume, fatNumber int, startCluster uint32) *ClusterSectorIterator {
	it := &ClusterSectorIterator{
		vol:           vol,
		fatNumber:     fatNumber,
		sectorsPerClu: uint32(vol.bpb.SectorsPerCluster),
		dataStart:     vol.bpb.DataStart,
		cluster:       startCluster,
	}
	if startCluster < 2 {
		it.done = true
	}
	return it
}

// Err returns the first device error encountered, if any.
func (it *ClusterSectorIterator) Err() error { return it.err }

// Next returns the next sector in the chain, in increasing order within a
// cluster (§8 Iterator monotonicity); across a cluster boundary the next
// sector may be lower than the last one yielded, since FAT chains may run
// backwards on disk. Returns ok=false once the chain ends or on error
// (distinguishable via Err).
func (it *ClusterSectorIterator) Next() (sector BlockIdx, ok bool) {
	if it.done || it.err != nil {
		return 0, false
	}
	if it.sectorIdx >= it.sectorsPerClu {
		// Exhausted this cluster; chase the FAT for the next one.
		next, err := it.vol.findNextCluster(it.fatNumber, it.cluster)
		if err != nil {
			it.err = err
			it.done = true
			return 0, false
		}
		if next == nil {
			it.done = true
			return 0, false
		}
		it.cluster = *next
		it.sectorIdx = 0
	}
	base := it.dataStart + BlockIdx((it.cluster-2)*it.sectorsPerClu)
	sector = base + BlockIdx(it.sectorIdx)
	it.sectorIdx++
	return sector, true
}
