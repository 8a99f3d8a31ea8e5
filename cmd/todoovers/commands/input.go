package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// readSecret returns flagValue, or the first line of r when flagValue
// is empty.
func readSecret(r io.Reader, flagValue, what string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", what, err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return line, nil
}
