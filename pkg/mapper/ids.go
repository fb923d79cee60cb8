package mapper

import (
	"regexp"
	"strconv"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Slugify lower-cases a name and collapses every run of non-word characters into one hyphen.
func Slugify(name string) string {
	return strings.ToLower(nonWord.ReplaceAllString(name, "-"))
}

// idAllocator hands out node ids that are unique within one conversion run.
type idAllocator struct {
	used map[string]bool
}

func newIDAllocator(reserved ...string) *idAllocator {
	a := &idAllocator{used: make(map[string]bool, len(reserved))}
	for _, id := range reserved {
		a.used[id] = true
	}

	return a
}

// allocate returns the slug of name, disambiguated first by the slug of the source
// module id and then by a counter.
func (a *idAllocator) allocate(name, sourceID string) string {
	base := Slugify(name)
	if base == "" || base == "-" {
		base = "node"
	}

	if a.claim(base) {
		return base
	}

	base = strings.TrimRight(base, "-")
	if base == "" {
		base = "node"
	}

	if suffix := Slugify(sourceID); suffix != "" && suffix != "-" {
		candidate := base + "-" + strings.Trim(suffix, "-")
		if a.claim(candidate) {
			return candidate
		}

		base = candidate
	}

	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if a.claim(candidate) {
			return candidate
		}
	}
}

func (a *idAllocator) claim(id string) bool {
	if a.used[id] {
		return false
	}

	a.used[id] = true

	return true
}
