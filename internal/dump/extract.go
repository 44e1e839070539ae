package dump

import (
	"bufio"
	"io"
)

// Line-oriented dump utilities. These deliberately work a line at a time so
// that multi-gigabyte dumps and stdin streams can be processed without
// loading the whole text. Dump INSERT lines routinely exceed bufio.Scanner's
// default token size, hence bufio.Reader.

// ListTables returns the names of all tables declared in the dump, in order
// of appearance.
func ListTables(r io.Reader) ([]string, error) {
	var tables []string
	err := eachLine(r, func(line string) {
		if name, ok := statementTarget(line, "CREATE", "TABLE"); ok {
			tables = append(tables, name)
		}
	})
	return tables, err
}

// StripTableData copies the dump from r to w, dropping INSERT statements for
// the named tables while keeping every table structure. It returns the set
// of named tables that were actually found in the dump, so callers can warn
// about the others.
func StripTableData(r io.Reader, w io.Writer, tables []string) (map[string]bool, error) {
	targets := make(map[string]bool, len(tables))
	for _, t := range tables {
		targets[t] = true
	}

	found := make(map[string]bool)
	bw := bufio.NewWriter(w)
	err := eachLine(r, func(line string) {
		if name, ok := statementTarget(line, "INSERT", "INTO"); ok && targets[name] {
			return
		}
		if name, ok := statementTarget(line, "CREATE", "TABLE"); ok && targets[name] {
			found[name] = true
		}
		_, _ = bw.WriteString(line)
	})
	if err != nil {
		return found, err
	}
	return found, bw.Flush()
}

// eachLine calls fn for every line of r, newline included.
func eachLine(r io.Reader, fn func(line string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			fn(line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// statementTarget returns the identifier following the given statement
// keywords when the line starts with them ("CREATE TABLE `users` ..."
// yields "users").
func statementTarget(line string, keywords ...string) (string, bool) {
	rest, ok := cutKeyword(line, keywords...)
	if !ok {
		return "", false
	}
	if r, ok := cutKeyword(rest, "IF", "NOT", "EXISTS"); ok {
		rest = r
	}
	name, _, ok := readIdent(rest)
	if !ok {
		return "", false
	}
	return name, true
}
