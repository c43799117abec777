package upgrader

import "strings"

// SplitOutput splits combined command output into journal lines.
//
// Console tools redraw progress bars and spinners in place with carriage
// returns; only the final state of such a line is kept, as a terminal would
// show it. Trailing whitespace is trimmed. Lines that are empty or hold only
// whitespace are not journaled, so the result never contains an empty string.
func SplitOutput(output string) []string {
	rawLines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(rawLines))

	for _, line := range rawLines {
		if i := strings.LastIndexByte(strings.TrimRight(line, "\r"), '\r'); i >= 0 {
			line = line[i+1:]
		}

		line = strings.TrimRightFunc(line, isSpace)
		if strings.TrimSpace(line) == "" {
			continue
		}

		lines = append(lines, line)
	}

	return lines
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\v' || r == '\f'
}
