// Package migrations embeds the schema applied by `qmail migrate`.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed mysql/*.sql clickhouse/*.sql
var files embed.FS

// MySQL returns the MySQL migration scripts in apply order.
func MySQL() ([]Script, error) { return load("mysql") }

// ClickHouse returns the ClickHouse migration scripts in apply order.
func ClickHouse() ([]Script, error) { return load("clickhouse") }

type Script struct {
	Name string
	SQL  string
}

// Statements splits the script on semicolons. ClickHouse executes one
// statement per call.
func (s Script) Statements() []string {
	var out []string
	for _, stmt := range strings.Split(s.SQL, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func load(dir string) ([]Script, error) {
	names, err := fs.Glob(files, dir+"/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	scripts := make([]Script, 0, len(names))
	for _, name := range names {
		b, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, Script{Name: name, SQL: string(b)})
	}
	return scripts, nil
}
