package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/psaab/fgtconf/pkg/config"
)

// defaultLast is the number of lines kept by "| last" without a count.
const defaultLast = 10

// splitPipes splits the words after the first "|" into filter commands.
func splitPipes(words []string) [][]string {
	var pipes [][]string
	cur := []string{}
	for _, w := range words {
		if w == "|" {
			pipes = append(pipes, cur)
			cur = []string{}
			continue
		}
		cur = append(cur, config.Unquote(w))
	}
	return append(pipes, cur)
}

// applyPipe filters command output line by line.
func applyPipe(text string, pipe []string) (string, error) {
	if len(pipe) == 0 {
		return "", fmt.Errorf("missing filter after |")
	}
	var lines []string
	if text != "" {
		lines = strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	}

	switch pipe[0] {
	case "grep", "match", "except":
		if len(pipe) < 2 {
			return "", fmt.Errorf("%s: missing pattern", pipe[0])
		}
		re, err := regexp.Compile(strings.Join(pipe[1:], " "))
		if err != nil {
			return "", fmt.Errorf("%s: %w", pipe[0], err)
		}
		keep := pipe[0] != "except"
		var out []string
		for _, ln := range lines {
			if re.MatchString(ln) == keep {
				out = append(out, ln)
			}
		}
		return join(out), nil

	case "count":
		return fmt.Sprintf("Count: %d lines\n", len(lines)), nil

	case "last":
		n := defaultLast
		if len(pipe) > 1 {
			var err error
			if n, err = strconv.Atoi(pipe[1]); err != nil || n < 0 {
				return "", fmt.Errorf("last: invalid count %q", pipe[1])
			}
		}
		if n < len(lines) {
			lines = lines[len(lines)-n:]
		}
		return join(lines), nil
	}
	return "", fmt.Errorf("unknown filter: %s", pipe[0])
}

func join(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
