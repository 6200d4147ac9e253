// Package fat implements a read/write-capable FAT16 and FAT32 filesystem
// core for resource-constrained environments. It parses a BIOS Parameter
// Block, walks FAT cluster chains and directory trees, streams file
// content through a single-sector byte cache, and deletes files by
// unlinking their cluster chain and directory slot.
//
// Geometry, FAT entries and directory slots are decoded in place from a
// single 512-byte sector buffer per iterator. The Volume's open-file
// table, the iterators and their caches, and decoded long names are
// allocated on the heap.
//
// Callers provide a BlockDevice (§6.1); everything above that boundary,
// including MBR partitioning, is implemented here.
package fat
