package partrie

import (
	"github.com/brianvoe/gofakeit/v6"

	"github.com/aglyzov/partrie/epoch"
)

func getWords(total int, seed int64) []string {
	var (
		fake  = gofakeit.New(seed)
		words = make([]string, total)
	)

	for i := range words {
		words[i] = fake.Word()
	}

	return words
}

func newRuneTrie(opts ...Option) (*Trie[rune], *epoch.Collector) {
	c := epoch.NewCollector()

	return New[rune](append([]Option{WithCollector(c)}, opts...)...), c
}

func distinctFirstRunes(words []string) int {
	seen := map[rune]struct{}{}

	for _, w := range words {
		for _, r := range w {
			seen[r] = struct{}{}
			break
		}
	}

	return len(seen)
}

func prefixesOf(word string) []string {
	var (
		runes = []rune(word)
		res   = make([]string, 0, len(runes))
	)

	for i := 1; i <= len(runes); i++ {
		res = append(res, string(runes[:i]))
	}

	return res
}
