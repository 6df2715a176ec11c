package match

import "strings"

// DefaultThreshold is the similarity at or above which two schema names are treated
// as the same element.
const DefaultThreshold = 0.85

// Similarity returns the Ratcliff/Obershelp ratio 2*M/T of a and b compared
// case-insensitively, where M is the number of characters in matching blocks and T
// the total number of characters. The result is in [0, 1]; two empty strings are
// identical.
//
// Matching blocks are found the way difflib's SequenceMatcher finds them: take the
// longest common substring (earliest on ties), then recurse on both sides.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingCharacters(ra, rb)) / float64(total)
}

// First returns the index of the first name whose similarity to candidate is at
// least threshold, or -1. The policy is first-above-threshold, not best match, so
// callers must pass names in a stable order.
func First(candidate string, names []string, threshold float64) int {
	for i, name := range names {
		if Similarity(candidate, name) >= threshold {
			return i
		}
	}
	return -1
}

// matchingCharacters sums the sizes of all matching blocks of a and b.
func matchingCharacters(a, b []rune) int {
	type span struct{ alo, ahi, blo, bhi int }

	matched := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestMatch(a, b, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest common substring of a[alo:ahi] and b[blo:bhi].
// Among equally long blocks it returns the one starting earliest in a, then in b.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, bestk int) {
	besti, bestj = alo, blo

	// prev[j+1] is the length of the match ending at a[i-1], b[j].
	prev := make([]int, bhi-blo+1)
	curr := make([]int, bhi-blo+1)
	for i := alo; i < ahi; i++ {
		for j := blo; j < bhi; j++ {
			col := j - blo + 1
			if a[i] != b[j] {
				curr[col] = 0
				continue
			}
			k := prev[col-1] + 1
			curr[col] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		prev, curr = curr, prev
	}
	return besti, bestj, bestk
}
