package client

import (
	"bufio"
	"io"
	"strings"
)

const maxEventLine = 1 << 20

type event struct {
	name string
	data string
}

// readEvents parses a server-sent event stream and calls handle for every
// complete event until handle returns false or the stream ends.
func readEvents(r io.Reader, handle func(event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	var (
		name string
		data []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 {
				e := event{name: name, data: strings.Join(data, "\n")}
				if e.name == "" {
					e.name = "message"
				}
				if !handle(e) {
					return nil
				}
			}
			name, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	return scanner.Err()
}
