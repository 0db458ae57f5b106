package wordsrc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	t.Parallel()

	for _, tcase := range []*struct {
		Name  string
		Input string
		Exp   []string
	}{
		{"empty", "", nil},
		{"blank", " \n\t ", nil},
		{"single", "trie", []string{"trie"}},
		{"lines", "the quick\nbrown  fox\r\n\tjumps", []string{"the", "quick", "brown", "fox", "jumps"}},
		{"unicode", "naïve café", []string{"naïve", "café"}},
	} {
		tcase := tcase

		t.Run(tcase.Name, func(t *testing.T) {
			t.Parallel()

			words, err := Read(strings.NewReader(tcase.Input))

			require.NoError(t, err)
			assert.Equal(t, tcase.Exp, words)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("cod code\ncoder\n"), 0o600))

	words, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"cod", "code", "coder"}, words)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "open words file")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFake(t *testing.T) {
	t.Parallel()

	a := Fake(100, 1234567890)
	b := Fake(100, 1234567890)

	assert.Len(t, a, 100)
	assert.Equal(t, a, b)

	for _, w := range a {
		assert.NotEmpty(t, w)
	}

	assert.Empty(t, Fake(0, 1))
}

func TestSplit(t *testing.T) {
	t.Parallel()

	words := Fake(103, 7)

	for _, tcase := range []*struct {
		Parts    int
		ExpParts int
		ExpMin   int
		ExpMax   int
	}{
		{0, 1, 103, 103},
		{1, 1, 103, 103},
		{4, 4, 25, 26},
		{10, 10, 10, 11},
		{200, 200, 0, 1},
	} {
		parts := Split(words, tcase.Parts, 42)

		require.Len(t, parts, tcase.ExpParts)

		var all []string
		for _, p := range parts {
			assert.GreaterOrEqual(t, len(p), tcase.ExpMin)
			assert.LessOrEqual(t, len(p), tcase.ExpMax)

			all = append(all, p...)
		}

		assert.ElementsMatch(t, words, all)
	}

	// the input is left untouched
	assert.Equal(t, Fake(103, 7), words)
}
