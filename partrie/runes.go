package partrie

import "iter"

// Runes iterates over the runes of s.
func Runes(s string) iter.Seq[rune] {
	return func(yield func(rune) bool) {
		for _, r := range s {
			if !yield(r) {
				return
			}
		}
	}
}

// RuneStrings converts the sequences of a rune trie back into strings.
func RuneStrings(f *Found[rune]) []string {
	res := make([]string, 0, f.Len())

	for seq := range f.All() {
		res = append(res, string(seq))
	}

	return res
}
