// Package candidate builds the ordered list of domain names to probe.
package candidate

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultTLD is appended to every name when a Generator has no TLD set.
const DefaultTLD = "top"

//go:embed names.txt
var defaultNames string

// Generator produces fully qualified candidates from a name table.
type Generator struct {
	Names []string
	TLD   string
	// IncludeTriples prefixes the output with every three-letter name
	// from aaa to zzz.
	IncludeTriples bool
}

// Generate returns the candidates in probe order. Duplicate names are kept.
func (g Generator) Generate() []string {
	tld := strings.TrimPrefix(g.TLD, ".")
	if tld == "" {
		tld = DefaultTLD
	}

	n := len(g.Names)
	if g.IncludeTriples {
		n += 26 * 26 * 26
	}
	out := make([]string, 0, n)

	if g.IncludeTriples {
		for _, name := range Triples() {
			out = append(out, name+"."+tld)
		}
	}
	for _, name := range g.Names {
		out = append(out, name+"."+tld)
	}
	return out
}

// Triples returns aaa, aab, ... zzz.
func Triples() []string {
	out := make([]string, 0, 26*26*26)
	for a := 'a'; a <= 'z'; a++ {
		for b := 'a'; b <= 'z'; b++ {
			for c := 'a'; c <= 'z'; c++ {
				out = append(out, string([]rune{a, b, c}))
			}
		}
	}
	return out
}

// DefaultNames returns a fresh copy of the built-in name table.
func DefaultNames() []string {
	names, _ := parse(strings.NewReader(defaultNames))
	return names
}

// LoadFile reads one name per line. Blank lines and lines starting with
// '#' are skipped.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load names: %w", err)
	}
	defer f.Close()

	names, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("load names %s: %w", path, err)
	}
	return names, nil
}

func parse(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}
