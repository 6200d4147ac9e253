// Command fatls is a read-only directory and file inspector for FAT16/FAT32
// disk images, the host-side "does this actually work end-to-end"
// companion every published Go FAT port seems to carry (soypat/fat ships
// example_test.go for the same reason; this is that idea as a standalone
// tool instead of a test).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blockdevfs/fat16"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fatls <image> [dir-path]",
		Short: "fatls - list FAT16/FAT32 directory entries in a disk image",
		Args:  cobra.RangeArgs(1, 2),
	}
	root.Flags().IntP("partition", "p", -1, "MBR partition number to open (0-based); -1 treats the image as an unpartitioned volume")
	root.Flags().BoolP("long", "l", false, "show attributes and cluster alongside name and size")
	root.RunE = runList
	return root
}
