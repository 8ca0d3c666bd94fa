package utils

import (
	"bufio"
	"errors"
	"strings"
)

var ErrInvalidSSELine = errors.New("invalid SSE line")

/*
ReadSSE reads one line of an event stream and returns its data payload.
Blank lines, comments and keep-alives yield an empty string, as do id and
event fields.
*/
func ReadSSE(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')

	if err != nil {
		return "", err
	}

	line = strings.TrimSpace(line)

	if line == "" || strings.HasPrefix(line, ":") { // comments / keep‑alive
		return "", nil
	}

	if strings.HasPrefix(line, "id:") || strings.HasPrefix(line, "event:") || strings.HasPrefix(line, "retry:") {
		return "", nil
	}

	if !strings.HasPrefix(line, "data:") {
		return "", ErrInvalidSSELine
	}

	return strings.TrimSpace(strings.TrimPrefix(line, "data:")), nil
}
