package batch

import (
	"os"
	"slices"
	"sort"
	"strings"
)

// ListOptions controls ListAudioFiles. ReportMissing surfaces names that the
// ordering JSON references but that are absent on disk; the default keeps
// the original silent-skip behavior.
type ListOptions struct {
	ReportMissing bool
}

// ListAudioFiles returns the .mp3 entries of dir ordered for display: files
// named by orderingJSON first (in first-appearance order, existing files
// only), then any remaining files in lexicographic order. A missing
// directory yields an empty list, and an unparsable orderingJSON falls back
// to plain lexicographic ordering.
func ListAudioFiles(dir, orderingJSON string, opts ListOptions) (files, missing []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil
	}

	available := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mp3") {
			continue
		}
		available[e.Name()] = true
	}

	if orderingJSON != "" {
		if tasks, err := ParseTasks(orderingJSON); err == nil {
			var ordered []string
			reported := make(map[string]bool)
			for _, task := range tasks {
				if task.FileName == nil {
					continue
				}
				name := *task.FileName
				switch {
				case available[name]:
					ordered = append(ordered, name)
					delete(available, name)
				case opts.ReportMissing && !reported[name] && !slices.Contains(ordered, name):
					missing = append(missing, name)
					reported[name] = true
				}
			}
			return append(ordered, sortedKeys(available)...), missing
		}
	}

	return sortedKeys(available), nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
