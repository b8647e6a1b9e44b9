package score

import "sort"

// TopK returns the min(k, len(entries)) best entries sorted by score
// descending. The total order is score descending then row ascending,
// so results are deterministic for identical inputs including score
// ties. entries is reordered in place.
//
// When more than k entries exist, a median-of-three quickselect first
// isolates the k best in expected linear time and only those k are
// sorted, instead of sorting all m entries in O(m log m).
func TopK(entries []DocScore, k int) []DocScore {
	if k <= 0 {
		return nil
	}
	if len(entries) > k {
		selectTop(entries, k)
		entries = entries[:k]
	}
	sort.Slice(entries, func(i, j int) bool {
		return better(entries[i], entries[j])
	})
	return entries
}

// better is the total order: higher score first, ties by lower row.
func better(a, b DocScore) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Row < b.Row
}

// selectTop partitions entries so the k best (under better) occupy
// entries[:k], in no particular order.
func selectTop(entries []DocScore, k int) {
	lo, hi := 0, len(entries)-1
	for lo < hi {
		p := partition(entries, lo, hi)
		switch {
		case p == k-1:
			return
		case p < k-1:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition picks a median-of-three pivot, moves everything better than
// it to the left, and returns the pivot's final position.
func partition(entries []DocScore, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if better(entries[mid], entries[lo]) {
		entries[lo], entries[mid] = entries[mid], entries[lo]
	}
	if better(entries[hi], entries[lo]) {
		entries[lo], entries[hi] = entries[hi], entries[lo]
	}
	if better(entries[hi], entries[mid]) {
		entries[mid], entries[hi] = entries[hi], entries[mid]
	}
	pivot := entries[mid]
	entries[mid], entries[hi] = entries[hi], entries[mid]

	i := lo
	for j := lo; j < hi; j++ {
		if better(entries[j], pivot) {
			entries[i], entries[j] = entries[j], entries[i]
			i++
		}
	}
	entries[i], entries[hi] = entries[hi], entries[i]
	return i
}
