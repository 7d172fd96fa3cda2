package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	state := map[string]interface{}{
		"TOPIC":    "Hannibal Barca",
		"pos_data": []interface{}{"crossed the Alps", "won at Cannae"},
		"count":    3,
	}

	testCases := []struct {
		name     string
		template string
		expect   string
	}{
		{
			name:     "plain text untouched",
			template: "You are The Judge. Review the evidence.",
			expect:   "You are The Judge. Review the evidence.",
		},
		{
			name:     "scalar substitution",
			template: "Research the topic: { TOPIC? }.",
			expect:   "Research the topic: Hannibal Barca.",
		},
		{
			name:     "no padding inside braces",
			template: "Topic: {TOPIC?}",
			expect:   "Topic: Hannibal Barca",
		},
		{
			name:     "sequence renders as list",
			template: "Positive Evidence: { pos_data? }",
			expect:   "Positive Evidence: - crossed the Alps\n- won at Cannae",
		},
		{
			name:     "optional absent renders empty",
			template: "Negative Evidence: { neg_data? }",
			expect:   "Negative Evidence: ",
		},
		{
			name:     "required absent stays literal",
			template: "Verdict: { verdict }",
			expect:   "Verdict: { verdict }",
		},
		{
			name:     "non string scalar",
			template: "Iteration { count? }",
			expect:   "Iteration 3",
		},
		{
			name:     "malformed placeholder kept",
			template: "set { not a key } here",
			expect:   "set { not a key } here",
		},
		{
			name:     "unterminated brace kept",
			template: "open { TOPIC",
			expect:   "open { TOPIC",
		},
		{
			name:     "adjacent placeholders",
			template: "{TOPIC?}/{TOPIC?}",
			expect:   "Hannibal Barca/Hannibal Barca",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Render(tc.template, state))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "text", Format("text"))
	assert.Equal(t, "- a\n- b", Format([]string{"a", "b"}))
	assert.Equal(t, "", Format([]interface{}{}))
}
