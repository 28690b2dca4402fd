// assets/embed.go
//
// Embedded defaults shipped with the binary:
//   - words.txt: fallback dictionary when WORDS_FILE is unset.
//   - sql/*.sql: snapshot store migrations (sqlite and postgres flavours).

package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed words.txt
var wordsFS embed.FS

//go:embed sql
var migrationsFS embed.FS

func readLines(name string) ([]string, error) {
	f, err := wordsFS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out, sc.Err()
}

// WordList returns the embedded default dictionary.
func WordList() ([]string, error) {
	return readLines("words.txt")
}

// Migrations returns the migration files for a dialect ("sqlite" or "postgres")
// rooted so that names are plain file names, e.g. "0001_accounts.sql".
func Migrations(dialect string) (fs.FS, error) {
	return fs.Sub(migrationsFS, "sql/"+dialect)
}
