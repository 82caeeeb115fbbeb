package memory

import (
	"strconv"
	"strings"

	"github.com/smallnest/convmem/log"
)

const (
	// PublicationHeader opens the publication section of a system prompt
	PublicationHeader = "[PUBLICATION CONTENT START]"
	// PublicationFooter closes the publication section of a system prompt
	PublicationFooter = "[PUBLICATION CONTENT END]"
	// PublicationPlaceholder replaces a redacted publication section
	PublicationPlaceholder = "[PUBLICATION CONTENT OMITTED FOR READABILITY]"

	// SummaryPrefix starts the synthetic system message holding a summary
	SummaryPrefix = "Summary of earlier conversation: "

	questionSeparatorWidth = 80
)

// Serialize renders messages as the plain-text prompt used for token
// counting and reports. Unless includePublication is set, the publication
// section of system messages is replaced by a placeholder.
func Serialize(messages []*Message, includePublication bool) string {
	var sb strings.Builder
	questions := 0
	for idx, msg := range messages {
		switch msg.role {
		case RoleSystem:
			content := msg.content
			if !includePublication && strings.Contains(content, PublicationHeader) {
				redacted, ok := RedactSection(content, PublicationHeader, PublicationFooter, PublicationPlaceholder)
				if !ok {
					log.Warn("publication content markers not found in system message")
				}
				content = redacted
			}
			sb.WriteString("SYSTEM: ")
			sb.WriteString(content)
			sb.WriteString("\n\n")
		case RoleUser:
			questions++
			if idx > 0 {
				sb.WriteString(strings.Repeat("=", questionSeparatorWidth))
				sb.WriteString("\n")
			}
			sb.WriteString("Q")
			sb.WriteString(strconv.Itoa(questions))
			sb.WriteString(": ")
			sb.WriteString(msg.content)
			sb.WriteString("\n")
		case RoleAssistant:
			sb.WriteString("AI: ")
			sb.WriteString(msg.content)
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// SerializeTranscript renders user and assistant messages as Q:/AI: lines.
// System messages are skipped.
func SerializeTranscript(messages []*Message) string {
	var sb strings.Builder
	for _, msg := range messages {
		switch msg.role {
		case RoleUser:
			sb.WriteString("Q: ")
		case RoleAssistant:
			sb.WriteString("AI: ")
		default:
			continue
		}
		sb.WriteString(msg.content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// SummaryPrompt builds the instruction sent to the summarizer
func SummaryPrompt(transcript string) string {
	return "Provide a concise summary of this conversation history:" + transcript +
		"\n\nFocus on main topics and key information. Keep under 200 words."
}

// RedactSection replaces the text from the first start marker through the
// end of the following end marker with placeholder. It returns content
// unchanged and false when either marker is missing.
func RedactSection(content, start, end, placeholder string) (string, bool) {
	startIdx := strings.Index(content, start)
	if startIdx == -1 {
		return content, false
	}
	rel := strings.Index(content[startIdx+len(start):], end)
	if rel == -1 {
		return content, false
	}
	endIdx := startIdx + len(start) + rel
	return content[:startIdx] + placeholder + content[endIdx+len(end):], true
}
