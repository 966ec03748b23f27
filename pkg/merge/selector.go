package merge

import (
	"sort"

	"repomerge/pkg/artifact"
)

// SelectLatest reduces entries to the newest version of each package.
//
// The input is the concatenation of every archive's entry list in supply
// order. Entries are stable-sorted by package name, consecutive
// equal-package runs form groups, each group is stable-sorted by version
// key ascending, and the last element of each group wins. The result is
// therefore ordered alphabetically by package, not by input order.
//
// Equal keys keep whichever entry sorted later: with archives staged in
// supply order, the entry from the later archive wins a tie.
func SelectLatest(entries []artifact.Entry) []artifact.Entry {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]artifact.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Package < sorted[j].Package
	})

	winners := make([]artifact.Entry, 0, len(sorted))
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].Package == sorted[start].Package {
			end++
		}
		group := sorted[start:end]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Key.Less(group[j].Key)
		})
		winners = append(winners, group[len(group)-1])
		start = end
	}
	return winners
}
