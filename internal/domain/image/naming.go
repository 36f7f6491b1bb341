package image

import (
	"fmt"
	"path"
	"strings"
)

// nameAllocator hands out archive entry names, suffixing repeats with _2,
// _3 and so on in the order they are requested.
type nameAllocator struct {
	seen map[string]int
	used map[string]struct{}
}

func newNameAllocator(capacity int) *nameAllocator {
	return &nameAllocator{
		seen: make(map[string]int, capacity),
		used: make(map[string]struct{}, capacity),
	}
}

func (a *nameAllocator) allocate(name string) string {
	key := strings.ToLower(name)
	if _, taken := a.used[key]; !taken {
		a.used[key] = struct{}{}
		a.seen[key] = 1
		return name
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	n := a.seen[key]
	for {
		n++
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		ckey := strings.ToLower(candidate)
		if _, taken := a.used[ckey]; taken {
			continue
		}
		a.seen[key] = n
		a.used[ckey] = struct{}{}
		return candidate
	}
}

// assignUniqueNames rewrites success output names so no two entries of the
// archive collide. Outcomes must already be in input order.
func assignUniqueNames(outcomes []Outcome) {
	alloc := newNameAllocator(len(outcomes))
	for i := range outcomes {
		if outcomes[i].Success == nil {
			continue
		}
		outcomes[i].Success.OutputName = alloc.allocate(outcomes[i].Success.OutputName)
	}
}
