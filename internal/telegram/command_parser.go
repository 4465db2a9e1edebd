package telegram

import (
	"strconv"
	"strings"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
)

// ParseStoryArgs разбирает "имя | место | существо". Пустые части остаются пустыми,
// дальше их отловит валидация формы.
func ParseStoryArgs(args string) domain.FormInput {
	parts := strings.SplitN(args, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return domain.FormInput{
		Name:     normalizeSpaces(parts[0]),
		Setting:  normalizeSpaces(parts[1]),
		Creature: normalizeSpaces(parts[2]),
	}
}

// ParseStoryNumber - номер истории для /copy, 1-based.
func ParseStoryNumber(args string, total int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 1 || n > total {
		return 0, false
	}
	return n, true
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
