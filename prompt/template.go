// Package prompt renders agent instruction templates against a snapshot of
// the run session. Placeholders use the `{ key }` form; a trailing question
// mark (`{ key? }`) marks the key optional, rendering as empty text when the
// session holds no value. Required placeholders with no value are left
// untouched so that the gap stays visible to the reasoning model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/viant/parsly"
)

// Render substitutes `{ key? }` placeholders in template with values from the
// supplied state snapshot. It never fails: malformed placeholders are kept as
// literal text.
func Render(template string, state map[string]interface{}) string {
	if template == "" || !strings.Contains(template, "{") {
		return template
	}
	var b strings.Builder
	b.Grow(len(template))

	offset := 0
	for {
		idx := strings.IndexByte(template[offset:], '{')
		if idx < 0 {
			b.WriteString(template[offset:])
			break
		}
		b.WriteString(template[offset : offset+idx])
		start := offset + idx

		key, optional, consumed := matchPlaceholder(template[start:])
		if consumed == 0 {
			b.WriteByte('{')
			offset = start + 1
			continue
		}

		value, ok := state[key]
		switch {
		case ok:
			b.WriteString(Format(value))
		case optional:
			// optional and absent renders as empty text
		default:
			b.WriteString(template[start : start+consumed])
		}
		offset = start + consumed
	}
	return b.String()
}

// matchPlaceholder parses a `{ key? }` placeholder at the start of input and
// returns the key, whether it is optional and the number of consumed bytes.
// A zero consumed count means no placeholder starts here.
func matchPlaceholder(input string) (key string, optional bool, consumed int) {
	cursor := parsly.NewCursor("", []byte(input), 0)

	matched := cursor.MatchOne(openBraceToken)
	if matched.Code != openBraceToken.Code {
		return "", false, 0
	}
	matched = cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code != identifierToken.Code {
		return "", false, 0
	}
	key = matched.Text(cursor)

	matched = cursor.MatchOne(questionToken)
	optional = matched.Code == questionToken.Code

	matched = cursor.MatchAfterOptional(whitespaceToken, closeBraceToken)
	if matched.Code != closeBraceToken.Code {
		return "", false, 0
	}
	return key, optional, cursor.Pos
}

// Format renders a state value as instruction text. Sequences become a
// dash-prefixed list, one entry per line; scalars use their natural string
// form.
func Format(value interface{}) string {
	switch actual := value.(type) {
	case nil:
		return ""
	case string:
		return actual
	case []string:
		items := make([]interface{}, len(actual))
		for i, item := range actual {
			items[i] = item
		}
		return formatList(items)
	case []interface{}:
		return formatList(actual)
	default:
		return fmt.Sprintf("%v", actual)
	}
}

func formatList(items []interface{}) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(fmt.Sprintf("%v", item))
	}
	return b.String()
}
