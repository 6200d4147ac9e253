package fat

// RootDirIterator unifies FAT16's fixed root region with FAT32's clustered
// root (§4.5): a tagged union over a fixed sector Region and a Cluster
// chain, both satisfying the same sector-stream shape ClusterSectorIterator
// exposes.
type RootDirIterator struct {
	isRegion bool

	// Region case (FAT16).
	start BlockIdx
	len   BlockCount
	next  BlockCount

	// Cluster case (FAT32), delegates to §4.4.
	clusterIt *ClusterSectorIterator
}

// NewRootDirIterator builds the appropriate iterator for the volume's FAT
// type: a fixed region for FAT16, a cluster chain rooted at bpb.RootCluster
// for FAT32.
func NewRootDirIterator(vol *Volume) *RootDirIterator {
	bpb := vol.bpb
	if bpb.FatType == FatTypeFAT16 {
		return &RootDirIterator{isRegion: true, start: bpb.RootStart, len: bpb.RootLen}
	}
	return &RootDirIterator{clusterIt: NewClusterSectorIterator(vol, 1, bpb.RootCluster)}
}

// Err returns the first device error encountered, if any.
func (it *RootDirIterator) Err() error {
	if it.isRegion {
		return nil
	}
	return it.clusterIt.Err()
}

// Next returns the next sector of the root directory.
func (it *RootDirIterator) Next() (sector BlockIdx, ok bool) {
	if it.isRegion {
		if BlockCount(it.next) >= it.len {
			return 0, false
		}
		sector = it.start + BlockIdx(it.next)
		it.next++
		return sector, true
	}
	return it.clusterIt.Next()
}
