package search

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// maxLine bounds a single markdown line.
const maxLine = 4 * 1024 * 1024

// PrepareMarkdownFile reads the markdown at path and returns it flattened
// by FlattenMarkdown.
func PrepareMarkdownFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return FlattenMarkdown(f)
}

// FlattenMarkdown turns a markdown document into prompt-friendly text.
//
// Table blocks are rewritten so every data row becomes a standalone fact
// that repeats the column headers ("Region: Etosha; Best time: May-Oct").
// Separator rows are dropped. Other lines are kept (trimmed), runs of blank
// lines collapse to one, and the result ends with exactly one newline.
// An empty document yields "".
func FlattenMarkdown(r io.Reader) (string, error) {
	var b strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var header []string // current table header, nil outside a table
	blank := true       // start true to avoid a leading blank

	emit := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
		blank = false
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			header = nil
			if !blank {
				b.WriteByte('\n')
				blank = true
			}
			continue
		}

		if !isTableRow(line) {
			header = nil
			emit(line)
			continue
		}

		cells := splitRow(line)
		if isSeparatorRow(cells) {
			continue
		}
		if header == nil {
			header = cells
			continue
		}
		if fact := rowFact(header, cells); fact != "" {
			emit(fact)
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}

	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return "", nil
	}
	return out + "\n", nil
}

func isTableRow(line string) bool {
	return strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") && len(line) > 1
}

func splitRow(line string) []string {
	raw := strings.Split(strings.Trim(line, "|"), "|")
	cells := make([]string, len(raw))
	for i, c := range raw {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

// isSeparatorRow reports rows such as "| --- | :---: |".
func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, ":- ") != "" {
			return false
		}
	}
	return true
}

// rowFact pairs each non-empty cell with its header.
func rowFact(header, cells []string) string {
	parts := make([]string, 0, len(cells))
	for i, c := range cells {
		if c == "" {
			continue
		}
		if i < len(header) && header[i] != "" {
			parts = append(parts, header[i]+": "+c)
		} else {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "; ")
}
