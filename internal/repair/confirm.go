package repair

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the operator to approve a destructive step and returns
// their literal answer.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (string, error)
}

// PromptConfirmer writes the prompt to Out and reads one line from In.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// Confirm implements Confirmer. A closed input yields an empty answer.
func (p PromptConfirmer) Confirm(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Out != nil {
		if _, err := fmt.Fprint(p.Out, prompt); err != nil {
			return "", err
		}
	}
	if p.In == nil {
		return "", nil
	}
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read confirmation: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// StaticConfirmer answers every prompt with the same text. It backs the
// CLI's --confirm flag.
type StaticConfirmer string

// Confirm implements Confirmer.
func (s StaticConfirmer) Confirm(context.Context, string) (string, error) {
	return string(s), nil
}
