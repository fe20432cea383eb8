package llm

import "strings"

// Instructions is sent with every turn as the system-level guidance.
const Instructions = "You are a fleet operations assistant. Your job is to help recommend actions to improve fleet operations and management."

const digestFraming = `Summarize the following fleet activity from the last week.

Focus on:
- Critical or overdue issues
- Vehicles needing immediate attention
- Overall fleet trends

Provide specific recommendations for fleet management based on the data.

Do not relist the data. Just provide recommendations with a reasoning about your recommendations.

Do not invent information. Base your summary only on the provided data.
`

// BuildDigestPrompt wraps a serialized digest in the recommendation-focused
// framing used for the first turn of a session.
func BuildDigestPrompt(report string) string {
	var b strings.Builder
	b.WriteString(digestFraming)
	b.WriteString("\n---\n\n")
	b.WriteString(report)
	if !strings.HasSuffix(report, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
