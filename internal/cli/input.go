package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// reader returns the shared buffered stdin. One reader per App, because a
// fresh bufio.Reader would read ahead and drop input buffered by its
// predecessor.
func (a *App) reader(cmd *cobra.Command) *bufio.Reader {
	if a.stdin == nil {
		a.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	return a.stdin
}

// promptLine prints a prompt and reads a single line from the command's
// input. The trailing newline is trimmed; a partial line before EOF is
// returned as-is.
func (a *App) promptLine(cmd *cobra.Command, prompt string) (string, error) {
	if _, err := fmt.Fprint(cmd.OutOrStdout(), prompt); err != nil {
		return "", err
	}
	line, err := a.reader(cmd).ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal.
// Otherwise (tests, pipes) it falls back to a plain line read.
func (a *App) promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if _, err := fmt.Fprint(cmd.OutOrStdout(), prompt); err != nil {
			return "", err
		}
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
	return a.promptLine(cmd, prompt)
}
