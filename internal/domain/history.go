package domain

import (
	"encoding/json"
	"fmt"
)

// MaxHistory - сколько последних историй храним
const MaxHistory = 2

// History is most-recent-first and never longer than MaxHistory.
type History []string

func (h History) Prepend(story string) History {
	next := make(History, 0, MaxHistory)
	next = append(next, story)
	if len(h) > 0 {
		next = append(next, h[:min(len(h), MaxHistory-1)]...)
	}
	return next
}

func (h History) Clone() History {
	if h == nil {
		return History{}
	}
	out := make(History, len(h))
	copy(out, h)
	return out
}

func (h History) Encode() (string, error) {
	if h == nil {
		h = History{}
	}
	b, err := json.Marshal([]string(h))
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	return string(b), nil
}

// DecodeHistory parses the persisted slot. Extra entries beyond MaxHistory are dropped.
func DecodeHistory(raw string) (History, error) {
	var stories []string
	if err := json.Unmarshal([]byte(raw), &stories); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHistory, err)
	}
	if stories == nil {
		return History{}, nil
	}
	if len(stories) > MaxHistory {
		stories = stories[:MaxHistory]
	}
	return History(stories), nil
}
