package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kikiluvv/driftshow/pkg/util"
)

var photoExts = []string{".jpg", ".jpeg", ".png"}
var videoExts = []string{".mp4", ".mov", ".mkv", ".webm"}

// ScanPaths builds an ordered item list from file and directory
// arguments. Directories are expanded in lexical order; unrecognized
// files are skipped.
func ScanPaths(paths []string) ([]Item, error) {
	var items []Item

	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p, err)
		}

		if !fi.IsDir() {
			if item, ok := itemFor(p); ok {
				items = append(items, item)
			}
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("cannot list %s: %w", p, err)
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			if item, ok := itemFor(filepath.Join(p, name)); ok {
				items = append(items, item)
			}
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no photos or videos found")
	}
	return items, nil
}

func itemFor(path string) (Item, bool) {
	if util.HasExtension(path, photoExts...) {
		return NewPhoto(path, Rotate0), true
	}
	if util.HasExtension(path, videoExts...) {
		return NewVideo(path), true
	}
	return Item{}, false
}
