// Package rewrite applies byte-range replacements to source text.
package rewrite

import (
	"fmt"
	"sort"
)

// Edit replaces Source[Start:End] with Text. Start == End is an insertion.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Insert returns an insertion edit at offset
func Insert(offset int, text string) Edit {
	return Edit{Start: offset, End: offset, Text: text}
}

// Replace returns a replacement edit
func Replace(start, end int, text string) Edit {
	return Edit{Start: start, End: end, Text: text}
}

// Apply returns source with all edits applied. Edits refer to offsets in the
// original source. Insertions at the same offset keep their relative order.
// Overlapping replacements are rejected.
func Apply(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		out := make([]byte, len(source))
		copy(out, source)
		return out, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		// an insertion at an offset goes before a replacement starting there
		return sorted[i].Start == sorted[i].End && sorted[j].Start != sorted[j].End
	})

	out := make([]byte, 0, len(source)+estimateGrowth(sorted))
	cursor := 0
	for _, e := range sorted {
		if e.Start < 0 || e.End > len(source) || e.Start > e.End {
			return nil, fmt.Errorf("edit [%d,%d) out of range for %d bytes", e.Start, e.End, len(source))
		}
		if e.Start < cursor {
			return nil, fmt.Errorf("edit [%d,%d) overlaps a previous edit ending at %d", e.Start, e.End, cursor)
		}
		out = append(out, source[cursor:e.Start]...)
		out = append(out, e.Text...)
		cursor = e.End
	}
	out = append(out, source[cursor:]...)

	return out, nil
}

func estimateGrowth(edits []Edit) int {
	n := 0
	for _, e := range edits {
		n += len(e.Text)
	}
	return n
}
