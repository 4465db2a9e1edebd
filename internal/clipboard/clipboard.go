// Package clipboard writes to the system clipboard (xclip/xsel/wl-copy on linux, pbcopy, win32).
package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

var ErrUnsupported = errors.New("system clipboard is not available")

type System struct {
	// write подменяется в тестах
	write func(string) error
}

func NewSystem() *System {
	return &System{write: clipboard.WriteAll}
}

func (s *System) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	if err := s.write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
