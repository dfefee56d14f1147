// Package input expands CLI flag values that name another source: "-" reads
// stdin and "@path" reads a file.
package input

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// maxInputBytes bounds what is read from stdin or a file.
const maxInputBytes = 64 << 10

// Text returns the text a flag value refers to. Other values are returned
// unchanged. Trailing newlines are trimmed.
func Text(value string, stdin io.Reader) (string, error) {
	switch {
	case value == "-":
		return readAll(stdin, "stdin")
	case strings.HasPrefix(value, "@") && len(value) > 1:
		path := strings.TrimPrefix(value, "@")
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		defer f.Close()
		return readAll(f, path)
	}
	return value, nil
}

func readAll(r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > maxInputBytes {
		return "", fmt.Errorf("read %s: more than %d bytes", name, maxInputBytes)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
