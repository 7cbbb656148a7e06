package modes

import "sort"

// Resolve turns a set of detected modes into the ordered list to act on:
//
//  1. cancel, when present, is the only result
//  2. ecomode drops ultrawork
//  3. the rest is sorted by Priority, unknown names last in input order
//  4. ralph brings ultrawork along unless ecomode or ultrawork is already in
//     the result
func Resolve(matches []Mode) []Mode {
	var resolved []Mode
	seen := make(map[Mode]bool)
	for _, m := range matches {
		if m == Cancel {
			return []Mode{Cancel}
		}
		if !seen[m] {
			seen[m] = true
			resolved = append(resolved, m)
		}
	}

	if seen[Ecomode] && seen[Ultrawork] {
		resolved = without(resolved, Ultrawork)
		delete(seen, Ultrawork)
	}

	if seen[Ralph] && !seen[Ecomode] && !seen[Ultrawork] {
		resolved = append(resolved, Ultrawork)
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		return priorityOf(resolved[i]) < priorityOf(resolved[j])
	})
	return resolved
}

func without(list []Mode, drop Mode) []Mode {
	out := list[:0:0]
	for _, m := range list {
		if m != drop {
			out = append(out, m)
		}
	}
	return out
}
