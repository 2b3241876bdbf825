// Package basic converts PDFs to CSV without a model: one row of extracted
// text per page.
package basic

import (
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// mastheadScan bounds how much of each page is compared when looking for a
// shared header.
const mastheadScan = 1000

// minMasthead is the shortest trimmed prefix worth removing.
const minMasthead = 10

var blankLines = regexp.MustCompile(`\n{2,}`)

// Options controls the CSV rendering.
type Options struct {
	DedupeHeader     bool `yaml:"dedupe_header"`
	PreserveNewlines bool `yaml:"preserve_newlines"`
}

// DefaultOptions returns the default rendering options.
func DefaultOptions() Options {
	return Options{DedupeHeader: true}
}

// Text joins raw page texts for plain-text output.
func Text(pages []string) string {
	return strings.Join(pages, "\n")
}

// WriteCSV writes a page,text header followed by one row per page.
func WriteCSV(w io.Writer, pages []string, opts Options) error {
	if opts.DedupeHeader && len(pages) > 1 {
		pages = RemoveMasthead(pages)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"page", "text"}); err != nil {
		return err
	}
	for i, text := range pages {
		if err := cw.Write([]string{strconv.Itoa(i + 1), NormalizePage(text, opts.PreserveNewlines)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RemoveMasthead strips the text every page starts with, such as a running
// header. Only whole lines are removed when the shared text spans a line
// break, and short shared prefixes are left alone.
func RemoveMasthead(pages []string) []string {
	prefix := commonPrefix(pages, mastheadScan)
	if i := strings.LastIndexByte(prefix, '\n'); i >= 0 {
		prefix = prefix[:i+1]
	}
	if len([]rune(strings.TrimSpace(prefix))) < minMasthead {
		return pages
	}

	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = strings.TrimPrefix(p, prefix)
	}
	return out
}

// commonPrefix returns the longest prefix shared by all strings, looking at
// no more than limit runes of each.
func commonPrefix(strs []string, limit int) string {
	if len(strs) == 0 {
		return ""
	}
	first := truncateRunes(strs[0], limit)
	n := len(first)
	for _, s := range strs[1:] {
		r := truncateRunes(s, limit)
		i := 0
		for i < n && i < len(r) && first[i] == r[i] {
			i++
		}
		n = i
		if n == 0 {
			return ""
		}
	}
	return string(first[:n])
}

func truncateRunes(s string, limit int) []rune {
	r := []rune(s)
	if len(r) > limit {
		r = r[:limit]
	}
	return r
}

// NormalizePage cleans extracted page text. With preserveNewlines, blank
// line runs collapse to one newline; otherwise all whitespace collapses to
// single spaces.
func NormalizePage(text string, preserveNewlines bool) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if preserveNewlines {
		return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n"))
	}
	return strings.Join(strings.Fields(text), " ")
}
