// Package prompt handles the interactive parts of a run: per-database
// master password entry and the confirmation gate before live writes.
package prompt

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword. Tests replace it to
// avoid touching the terminal.
var readPassword = term.ReadPassword

// Password prompts for the master password of the database at path,
// reading from the terminal without echo. The returned bytes should be
// wiped by the caller once the database is open.
func Password(w io.Writer, path string) ([]byte, error) {
	if _, err := fmt.Fprintf(w, "Password for %s: ", path); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return pw, nil
}

// Confirm asks the user to approve the pending writes. Callers skip it
// entirely under --yes or when stdin is not a terminal.
func Confirm(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative("Apply").
			Negative("Abort").
			Value(&ok),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation aborted: %w", err)
	}
	return ok, nil
}

// Wipe zeroes a password buffer.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
