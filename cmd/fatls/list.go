package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	fat "github.com/blockdevfs/fat16"
)

func runList(cmd *cobra.Command, args []string) error {
	partition, _ := cmd.Flags().GetInt("partition")
	long, _ := cmd.Flags().GetBool("long")

	dev, err := openFileBlockDevice(args[0])
	if err != nil {
		return err
	}
	defer dev.Close()

	var bdev fat.BlockDevice = dev
	if partition >= 0 {
		pbd, _, err := fat.OpenPartition(dev, partition)
		if err != nil {
			return fmt.Errorf("fatls: open partition %d: %w", partition, err)
		}
		bdev = pbd
	}

	vol, err := fat.Mount(bdev, nil)
	if err != nil {
		return fmt.Errorf("fatls: mount: %w", err)
	}

	it := vol.RootDir()
	if len(args) == 2 {
		it, err = descend(vol, it, args[1])
		if err != nil {
			return err
		}
	}

	for {
		entry, ok := it.Next()
		if !ok {
			break
		}
		printEntry(entry, long)
	}
	return it.Err()
}

// descend walks dirPath ("/" separated) from it, opening each named
// sub-directory in turn.
func descend(vol *fat.Volume, it *fat.DirIterator, dirPath string) (*fat.DirIterator, error) {
	for _, part := range strings.Split(strings.Trim(dirPath, "/"), "/") {
		if part == "" {
			continue
		}
		found := false
		for {
			entry, ok := it.Next()
			if !ok {
				break
			}
			if matchesShortName(entry, part) {
				if !entry.Attributes.IsDirectory() {
					return nil, fmt.Errorf("fatls: %q is not a directory", part)
				}
				it = vol.OpenDir(entry)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("fatls: %q not found", part)
		}
	}
	return it, nil
}

func matchesShortName(entry fat.DirEntryInfo, name string) bool {
	if entry.LongName != "" && strings.EqualFold(entry.LongName, name) {
		return true
	}
	return strings.EqualFold(strings.TrimRight(string(entry.ShortName[:]), " "), name)
}

func printEntry(entry fat.DirEntryInfo, long bool) {
	name := strings.TrimRight(string(entry.ShortName[:]), " ")
	if entry.LongName != "" {
		name = entry.LongName
	}
	size := humanize.Bytes(uint64(entry.FileSize))
	if !long {
		fmt.Printf("%-8s %s\n", size, name)
		return
	}
	kind := "file"
	if entry.Attributes.IsDirectory() {
		kind = "dir"
	}
	fmt.Printf("%-8s %-4s clu=%-8d %s\n", size, kind, entry.FirstCluster, name)
}
