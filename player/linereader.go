package player

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// LineReader adapts human input to Strategy. Each turn it reads one line of
// the form "<hand index> <position>"; "pass", "-" or a blank line places
// nothing. Malformed lines also pass and are logged.
type LineReader struct {
	in     *bufio.Scanner
	prompt io.Writer
	log    zerolog.Logger
	err    error
}

// NewLineReader reads decisions from r. When prompt is non-nil the hand and
// band are written to it before each read.
func NewLineReader(r io.Reader, prompt io.Writer, log zerolog.Logger) *LineReader {
	return &LineReader{in: bufio.NewScanner(r), prompt: prompt, log: log}
}

// Err returns the last read or parse error.
func (l *LineReader) Err() error { return l.err }

func (l *LineReader) Decide(v View) (Decision, bool) {
	if l.prompt != nil {
		l.writePrompt(v)
	}
	if !l.in.Scan() {
		l.err = l.in.Err()
		return Decision{}, false
	}
	d, ok, err := ParseDecision(l.in.Text())
	l.err = err
	if err != nil {
		l.log.Warn().Err(err).Str("side", v.Side().String()).Msg("ignoring placement input")
		return Decision{}, false
	}
	return d, ok
}

func (l *LineReader) writePrompt(v View) {
	fmt.Fprintf(l.prompt, "turn %d %s elixir=%d band=%v\n", v.Turn(), v.Side(), v.Elixir(), v.Band())
	for i, c := range v.Hand() {
		mark := " "
		if v.CanPlay(i) {
			mark = "*"
		}
		fmt.Fprintf(l.prompt, "  %s[%d] %s\n", mark, i, c)
	}
	fmt.Fprint(l.prompt, "> ")
}

// ParseDecision parses one input line. ok is false for a pass.
func ParseDecision(line string) (d Decision, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || line == "-" || strings.EqualFold(line, "pass") {
		return Decision{}, false, nil
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Decision{}, false, fmt.Errorf("want \"<hand> <position>\", got %q", line)
	}
	hand, err := strconv.Atoi(fields[0])
	if err != nil {
		return Decision{}, false, fmt.Errorf("hand index: %w", err)
	}
	pos, err := strconv.Atoi(fields[1])
	if err != nil {
		return Decision{}, false, fmt.Errorf("position: %w", err)
	}
	return Decision{HandIndex: hand, Position: pos}, true, nil
}
