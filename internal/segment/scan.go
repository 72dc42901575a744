package segment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/lucasew/logroll/internal/errutil"
)

// Scan lists the directory and rebuilds the ordered history of backing
// files, oldest first. A missing directory is not an error: it yields an
// empty set and is created lazily when the first file is opened.
//
// Scanning is read-only and takes no locks, so it is safe to repeat and
// safe against other processes touching the directory; a file that
// disappears between listing and stat is simply skipped.
func Scan(dir string, namer Namer) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list directory %s: %w", dir, err)
	}

	var set Set
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		index, ok := namer.Parse(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			errutil.LogMsg(err, "Failed to stat backing file", "name", entry.Name())
			continue
		}
		set = append(set, File{
			Index: index,
			Path:  namer.Path(index),
			Size:  info.Size(),
		})
	}

	sort.Slice(set, func(i, j int) bool { return set[i].Index < set[j].Index })
	return set, nil
}
