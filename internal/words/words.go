// internal/words/words.go
//
// Dictionary management for the round server.
//
// Responsibilities:
//   - Load the word list from a newline-delimited file, or fall back to the
//     embedded default list shipped in assets/words.txt.
//   - Enforce a uniform word length (guesses and secrets share one length).
//   - Supply lookups (Contains) and a uniform random pick for new rounds.
//
// A Dictionary is immutable once loaded and safe for concurrent use.

package words

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/robalobadob/wordle/apps/round-server/assets"
)

var (
	ErrEmpty         = errors.New("words: dictionary is empty")
	ErrUnequalLength = errors.New("words: words are not all the same length")
)

// Dictionary is the immutable set of valid guesses, which doubles as the
// pool of round candidates.
type Dictionary struct {
	list   []string
	set    map[string]struct{}
	length int
}

// Load reads the dictionary from path. An empty path selects the embedded
// default list.
func Load(path string) (*Dictionary, error) {
	if path == "" {
		list, err := assets.WordList()
		if err != nil {
			return nil, fmt.Errorf("words: embedded list: %w", err)
		}
		return New(list)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("words: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses one word per line; blank lines and '#' comments are skipped.
func Read(r io.Reader) (*Dictionary, error) {
	var list []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		list = append(list, w)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("words: read: %w", err)
	}
	return New(list)
}

// New builds a Dictionary from list, lowercasing entries and dropping
// duplicates.
func New(list []string) (*Dictionary, error) {
	d := &Dictionary{set: make(map[string]struct{}, len(list))}
	for _, w := range list {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		n := utf8.RuneCountInString(w)
		if d.length == 0 {
			d.length = n
		} else if n != d.length {
			return nil, fmt.Errorf("%w: %q has %d letters, want %d", ErrUnequalLength, w, n, d.length)
		}
		if _, dup := d.set[w]; dup {
			continue
		}
		d.set[w] = struct{}{}
		d.list = append(d.list, w)
	}
	if len(d.list) == 0 {
		return nil, ErrEmpty
	}
	return d, nil
}

// Contains reports whether w is a valid guess.
func (d *Dictionary) Contains(w string) bool {
	_, ok := d.set[strings.ToLower(w)]
	return ok
}

// WordLength is the letter count shared by every word.
func (d *Dictionary) WordLength() int { return d.length }

// Len is the number of distinct words.
func (d *Dictionary) Len() int { return len(d.list) }

// Random returns a uniformly chosen word using crypto/rand.
func (d *Dictionary) Random() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(d.list))))
	if err != nil {
		return d.list[0]
	}
	return d.list[n.Int64()]
}
