package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTitle is used when the deck declares no title.
const DefaultTitle = "Presentation"

// FrontMatter is the deck metadata.
type FrontMatter struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	Date   string `yaml:"date"`
}

// ParseFrontMatter splits metadata from the deck body. Two forms are
// recognized: pandoc-style "% title", "% author", "% date" lines and a YAML
// block fenced by "---" lines. Content without either form is returned
// unchanged with the default title.
func ParseFrontMatter(content string) (FrontMatter, string, error) {
	fm := FrontMatter{Title: DefaultTitle}

	lines := strings.Split(content, "\n")

	if len(lines) >= 3 && strings.HasPrefix(lines[0], "% ") {
		return parsePercent(fm, lines), bodyAfterPercent(lines, content), nil
	}

	if len(lines) > 0 && strings.TrimRight(lines[0], "\r") == "---" {
		return parseYAML(fm, lines, content)
	}

	return fm, content, nil
}

// parsePercent reads the title and, when all three lines are present, the
// author and date. Only a complete three-line header is stripped from the
// body.
func parsePercent(fm FrontMatter, lines []string) FrontMatter {
	fm.Title = percentValue(lines[0])

	if len(lines) >= 4 && strings.HasPrefix(lines[1], "% ") && strings.HasPrefix(lines[2], "% ") {
		fm.Author = percentValue(lines[1])
		fm.Date = percentValue(lines[2])
	}

	return fm
}

func bodyAfterPercent(lines []string, content string) string {
	if len(lines) < 4 || !strings.HasPrefix(lines[1], "% ") || !strings.HasPrefix(lines[2], "% ") {
		return content
	}

	start := 3
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}

	return strings.Join(lines[start:], "\n")
}

func percentValue(line string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, "% "))
}

func parseYAML(fm FrontMatter, lines []string, content string) (FrontMatter, string, error) {
	end := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == "---" {
			end = i
			break
		}
	}

	// A lone leading "---" is a thematic break, not front matter.
	if end < 0 {
		return fm, content, nil
	}

	var meta FrontMatter
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &meta); err != nil {
		return fm, "", fmt.Errorf("parsing front matter: %w", err)
	}

	if meta.Title != "" {
		fm.Title = meta.Title
	}

	fm.Author = meta.Author
	fm.Date = meta.Date

	return fm, strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\r\n"), nil
}
