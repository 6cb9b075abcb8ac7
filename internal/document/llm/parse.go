package llm

import "strings"

// CleanJSON strips the decoration language models wrap around JSON output.
// Markdown code fences are removed first, then everything outside the
// outermost brace pair is discarded.
func CleanJSON(output string) string {
	output = strings.TrimSpace(output)

	if strings.HasPrefix(output, "```") {
		lines := strings.Split(output, "\n")
		start, end := 0, len(lines)

		for i, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				start = i + 1
				break
			}
		}
		for i := len(lines) - 1; i >= 0; i-- {
			if strings.HasSuffix(strings.TrimSpace(lines[i]), "```") {
				end = i
				break
			}
		}
		if start < end {
			output = strings.Join(lines[start:end], "\n")
		}
	}

	if i := strings.Index(output, "{"); i != -1 {
		output = output[i:]
	}
	if i := strings.LastIndex(output, "}"); i != -1 {
		output = output[:i+1]
	}

	return output
}
