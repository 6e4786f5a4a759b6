// Package report renders the user-facing deployment progress report.
package report

import (
	"fmt"
	"io"
	"strings"
)

const bannerWidth = 50

var rule = strings.Repeat("=", bannerWidth)

// Writer emits the progress report for one deployment run. All output
// goes to a single stream in the order the run produces it.
type Writer struct {
	out io.Writer
}

// New creates a report writer targeting out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Banner prints the opening banner with the run title.
func (w *Writer) Banner(title string) {
	fmt.Fprintf(w.out, "%s\n%s\n%s\n", rule, title, rule)
}

// Connecting announces the connection attempt to host.
func (w *Writer) Connecting(host string) {
	fmt.Fprintf(w.out, "\nConnecting to %s...\n", host)
}

// Connected confirms the session is established.
func (w *Writer) Connected() {
	fmt.Fprint(w.out, "Connected successfully!\n\n")
}

// Announce prints the command about to run.
func (w *Writer) Announce(command string) {
	fmt.Fprintf(w.out, "\n>>> %s\n", command)
}

// Line prints one line of remote stdout as it arrives. Bytes that are
// not valid UTF-8 are replaced rather than dropped.
func (w *Writer) Line(line string) {
	fmt.Fprintf(w.out, "%s\n", sanitize(line))
}

// Stderr prints the remote stderr captured after the command finished.
// Callers skip it when the capture is empty.
func (w *Writer) Stderr(text string) {
	fmt.Fprintf(w.out, "STDERR: %s\n", sanitize(text))
}

// Warning flags a non-zero exit status without stopping the run.
func (w *Writer) Warning(status int) {
	fmt.Fprintf(w.out, "\nWarning: Command exited with status %d\n", status)
}

// Completed prints the closing banner, the target URLs and the
// trailing note. Empty sections are omitted.
func (w *Writer) Completed(urls []string, note string) {
	fmt.Fprintf(w.out, "\n%s\nDeployment Complete!\n%s\n", rule, rule)
	if len(urls) > 0 {
		fmt.Fprint(w.out, "\nYour site should be accessible at:\n")
		for _, u := range urls {
			fmt.Fprintf(w.out, "  %s\n", u)
		}
	}
	if note != "" {
		fmt.Fprintf(w.out, "\n%s\n", note)
	}
}

func sanitize(s string) string {
	return strings.ToValidUTF8(s, "?")
}
