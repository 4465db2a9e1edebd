package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
	"github.com/kitbuilder587/fantasy-tales/internal/service"
)

// лимит телеграма на сообщение
const maxMessageLen = 4096

// сырой кусок для <pre>, с запасом на экранирование
const copyChunkLen = 3000

func FormatToast(kind service.ToastKind, message string) string {
	var icon string
	switch kind {
	case service.ToastSuccess:
		icon = "✓"
	case service.ToastWarning:
		icon = "!"
	case service.ToastError:
		icon = "✗"
	default:
		icon = "•"
	}
	return icon + " " + html.EscapeString(message)
}

func FormatStory(n int, story string, copied bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Story %d</b>", n))
	if copied {
		sb.WriteString(" <i>(copied)</i>")
	}
	sb.WriteString("\n\n")
	sb.WriteString(html.EscapeString(story))
	return sb.String()
}

func FormatStories(history domain.History, copied string) string {
	if len(history) == 0 {
		return "No stories yet. Try /story Amara | underwater | sea dragon"
	}

	var sb strings.Builder
	sb.WriteString("<b>Your stories:</b>\n\n")
	for i, story := range history {
		sb.WriteString(FormatStory(i+1, story, copied != "" && story == copied))
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("Use /copy N to get a story as a copyable block. Only the last %d are kept.", domain.MaxHistory))
	return sb.String()
}

// FormatCopyBlocks режет текст до экранирования, чтобы теги <pre> не рвались между сообщениями.
func FormatCopyBlocks(text string) []string {
	var blocks []string
	for _, chunk := range SplitMessage(text, copyChunkLen) {
		blocks = append(blocks, "<pre>"+html.EscapeString(chunk)+"</pre>")
	}
	return blocks
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// пробел или перевод строки, не ломая HTML-теги
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) {
			continue
		}
		if isInsideHTMLTag(text, i) {
			continue
		}

		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return maxLen
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}
