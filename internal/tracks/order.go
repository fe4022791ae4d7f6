package tracks

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	leadingNumber = regexp.MustCompile(`^\s*(\d{1,4})\b`)
	markedNumber  = regexp.MustCompile(`(?i)\b(?:track|chapter|kapitola)\s*[_-]?\s*(\d{1,4})\b`)
	anyNumber     = regexp.MustCompile(`(\d{1,4})`)
)

// TrackNumber extracts a track number from the stem of name.
func TrackNumber(name string) (int, bool) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, re := range []*regexp.Regexp{leadingNumber, markedNumber, anyNumber} {
		if m := re.FindStringSubmatch(stem); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// Less reports whether a sorts before b: numbered files first, then by
// number, then by lower-cased name, then by exact name.
func Less(a, b string) bool {
	na, okA := TrackNumber(a)
	nb, okB := TrackNumber(b)
	if okA != okB {
		return okA
	}
	if okA && na != nb {
		return na < nb
	}
	la := strings.ToLower(filepath.Base(a))
	lb := strings.ToLower(filepath.Base(b))
	if la != lb {
		return la < lb
	}
	return filepath.Base(a) < filepath.Base(b)
}

// Sort returns a new slice with files in natural track order.
func Sort(files []string) []string {
	out := append([]string(nil), files...)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}
