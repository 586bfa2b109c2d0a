package policy

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// formatHex formats a float64 as a round-trip-exact hexadecimal float,
// per the predictor/agent wire protocol (spec §6). strconv's 'x' verb with
// precision -1 is the shortest representation that parses back to the exact
// same bits — there is no ecosystem library in the retrieved pack that
// improves on the standard library here.
func formatHex(v float64) string {
	return strconv.FormatFloat(v, 'x', -1, 64)
}

// writeLine writes a newline-terminated request line and treats any error,
// including a short write, as fatal — per spec §4.D a broken pipe or short
// write on the policy pipe is PipeFatal.
func writeLine(w io.Writer, fields ...string) error {
	line := strings.Join(fields, " ") + "\n"
	n, err := io.WriteString(w, line)
	if err != nil {
		return fmt.Errorf("policy: write request: %w", err)
	}
	if n != len(line) {
		return fmt.Errorf("policy: short write (%d/%d bytes)", n, len(line))
	}
	return nil
}

// readLine accumulates bytes from r until a newline is seen, regardless of
// how the policy process buffers its output, and returns the line with the
// trailing newline stripped. EOF before any newline is PipeFatal.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if line != "" {
			// Partial line followed by EOF: still fatal, the reply is incomplete.
			return "", fmt.Errorf("policy: incomplete reply %q: %w", line, err)
		}
		return "", fmt.Errorf("policy: read reply: %w", err)
	}
	return strings.TrimRight(line, "\n"), nil
}
