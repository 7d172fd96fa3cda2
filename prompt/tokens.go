package prompt

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	openBraceCode
	closeBraceCode
	questionCode
	identifierCode
)

// Token definitions
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	openBraceToken  = parsly.NewToken(openBraceCode, "{", matcher.NewByte('{'))
	closeBraceToken = parsly.NewToken(closeBraceCode, "}", matcher.NewByte('}'))
	questionToken   = parsly.NewToken(questionCode, "?", matcher.NewByte('?'))
	identifierToken = parsly.NewToken(identifierCode, "Identifier", newIdentifierMatcher())
)

func newIdentifierMatcher() parsly.Matcher {
	return &identifierMatcher{}
}

// identifierMatcher matches state key names: letters, digits and underscores,
// starting with a letter or underscore.
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' {
			matched++
			continue
		}
		break
	}
	return matched
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
