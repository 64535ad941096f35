package codegen

import "strings"

// languageAliases maps fence tags to their canonical language.
var languageAliases = map[string]string{
	"py":         "python",
	"python":     "python",
	"js":         "javascript",
	"javascript": "javascript",
	"ts":         "typescript",
	"typescript": "typescript",
	"r":          "r",
	"html":       "html",
}

// ExtractCode pulls code for the target language out of raw model
// output. Fenced blocks tagged with the language are concatenated in
// order; without any, a line-level heuristic is applied; and as a last
// resort the raw text is returned unmodified so downstream consumers
// always receive something displayable.
func ExtractCode(text, lang string) string {
	if blocks := fencedBlocks(text, lang); len(blocks) > 0 {
		return strings.Join(blocks, "\n\n")
	}
	if lines := heuristicLines(text, lang); len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	return text
}

// fencedBlocks collects ``` blocks whose tag matches the target
// language. A multi-block answer is treated as one logical unit.
func fencedBlocks(text, lang string) []string {
	var blocks []string
	var current []string
	inBlock := false
	matches := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inBlock {
				if matches && len(current) > 0 {
					blocks = append(blocks, strings.Join(current, "\n"))
				}
				inBlock = false
				current = nil
				continue
			}
			tag := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
			inBlock = true
			matches = languageAliases[tag] == lang
			continue
		}
		if inBlock {
			current = append(current, line)
		}
	}
	return blocks
}

// heuristicLines keeps lines that look like code for the language.
func heuristicLines(text, lang string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if looksLikeCode(line, lang) {
			out = append(out, line)
		}
	}
	return out
}

// looksLikeCode checks a line against language-specific leading-token
// patterns.
func looksLikeCode(line, lang string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	var prefixes []string
	switch lang {
	case "python":
		prefixes = []string{"import ", "from ", "def ", "class ", "print(", "plt.", "pd.", "np.", "#", "@", "if ", "for ", "return "}
	case "javascript", "typescript":
		prefixes = []string{"import ", "export ", "const ", "let ", "var ", "function ", "async ", "document.", "window.", "//", "return "}
	case "r":
		prefixes = []string{"library(", "require(", "ggplot(", "#"}
	case "html":
		prefixes = []string{"<"}
	default:
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	// Assignment arrows are the strongest R signal and rarely prose.
	if lang == "r" && strings.Contains(trimmed, "<-") {
		return true
	}
	return false
}
