package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Rules file syntax, one rule per line:
//
//	# comment
//	pull request => PR           literal, case-insensitive, whole words
//	s/deep\s*gram/Deepgram/g     sed-style regex with flags i, g, m, s
func parseRules(contents string, parsers []RuleParser) ([]compiledRule, error) {
	var rules []compiledRule
	for index, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := parseLine(line, parsers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parseLine(line string, parsers []RuleParser) (compiledRule, error) {
	for _, parser := range parsers {
		if parser.CanParse(line) {
			return parser.Parse(line)
		}
	}
	return nil, errors.New("unsupported rule format")
}

func defaultRuleParsers() []RuleParser {
	return []RuleParser{regexRuleParser{}, literalRuleParser{}}
}

type literalRuleParser struct{}

func (literalRuleParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (literalRuleParser) Parse(line string) (compiledRule, error) {
	return parseLiteralRule(line)
}

type regexRuleParser struct{}

func (regexRuleParser) CanParse(line string) bool {
	return len(line) > 1 && line[0] == 's' && isDelimiter(line[1])
}

func (regexRuleParser) Parse(line string) (compiledRule, error) {
	return parseRegexRule(line)
}

// replaceRule rewrites every match, or only the first when once is set.
type replaceRule struct {
	re          *regexp.Regexp
	replacement string
	once        bool
}

func (r replaceRule) Apply(input string) (string, bool) {
	if !r.once {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	loc := r.re.FindStringSubmatchIndex(input)
	if loc == nil {
		return input, false
	}
	expanded := r.re.ExpandString(nil, r.replacement, input, loc)
	output := input[:loc[0]] + string(expanded) + input[loc[1]:]
	return output, output != input
}

func parseLiteralRule(line string) (compiledRule, error) {
	from, to, ok := strings.Cut(line, "=>")
	if !ok {
		return nil, errors.New("invalid literal rule")
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("literal rule source cannot be empty")
	}

	pattern := regexp.QuoteMeta(from)
	if startsWithWord(from) {
		pattern = `\b` + pattern
	}
	if endsWithWord(from) {
		pattern += `\b`
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid literal source: %w", err)
	}

	// Literal replacements never expand $ references.
	return replaceRule{re: re, replacement: strings.ReplaceAll(to, "$", "$$")}, nil
}

var regexFlags = map[rune]string{
	'i': "i",
	'm': "m",
	's': "s",
}

func parseRegexRule(line string) (compiledRule, error) {
	if len(line) < 2 {
		return nil, errors.New("invalid regex rule")
	}
	delim := line[1]
	if !isDelimiter(delim) {
		return nil, errors.New("regex delimiter must be non-alphanumeric")
	}

	pattern, pos, err := parseDelimited(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := parseDelimited(line, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}

	// Matching is case-insensitive unless the flags say otherwise.
	enabled := map[string]bool{"i": true}
	global := false
	for _, flag := range strings.TrimSpace(line[pos:]) {
		if flag == ' ' {
			continue
		}
		if flag == 'g' {
			global = true
			continue
		}
		name, ok := regexFlags[flag]
		if !ok {
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
		enabled[name] = true
	}

	prefix := ""
	for _, name := range []string{"i", "m", "s"} {
		if enabled[name] {
			prefix += name
		}
	}

	re, err := regexp.Compile("(?" + prefix + ")" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return replaceRule{re: re, replacement: replacement, once: !global}, nil
}

// parseDelimited reads up to the next unescaped delim. Escapes are kept
// so the regexp package sees them.
func parseDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	escaped := false
	for index := start; index < len(line); index++ {
		char := line[index]
		switch {
		case escaped:
			escaped = false
		case char == '\\':
			escaped = true
		case char == delim:
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func isDelimiter(char byte) bool {
	return char < unicode.MaxASCII && !isWordByte(char) && char != ' ' && char != '\t'
}

func isWordByte(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '_'
}

func startsWithWord(s string) bool {
	return isWordByte(s[0])
}

func endsWithWord(s string) bool {
	return isWordByte(s[len(s)-1])
}
