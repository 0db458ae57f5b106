// Package wordsrc produces the word lists fed to the trie by the trierun
// command: either read from a text file or generated.
package wordsrc

import (
	"bufio"
	"io"
	"os"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/pkg/errors"
)

// Load reads every whitespace separated word of the file at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open words file")
	}
	defer f.Close()

	words, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read words from %s", path)
	}

	return words, nil
}

// Read splits r into whitespace separated words.
func Read(r io.Reader) ([]string, error) {
	var (
		scanner = bufio.NewScanner(r)
		words   []string
	)

	scanner.Split(bufio.ScanWords)

	for scanner.Scan() {
		words = append(words, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return words, nil
}

// Fake generates n random words. The same seed gives the same words.
func Fake(n int, seed int64) []string {
	var (
		fake  = gofakeit.New(seed)
		words = make([]string, n)
	)

	for i := range words {
		words[i] = fake.Word()
	}

	return words
}

// Split shuffles a copy of words and deals it out into parts chunks whose
// sizes differ by one at most.
func Split(words []string, parts int, seed int64) [][]string {
	if parts < 1 {
		parts = 1
	}

	var (
		shuffled = append([]string(nil), words...)
		res      = make([][]string, parts)
		size     = len(words) / parts
		rest     = len(words) % parts
	)

	gofakeit.New(seed).ShuffleStrings(shuffled)

	for i := range res {
		n := size
		if i < rest {
			n++
		}

		res[i], shuffled = shuffled[:n:n], shuffled[n:]
	}

	return res
}
