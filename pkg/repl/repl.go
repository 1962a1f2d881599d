// Package repl runs the interactive command loop on top of a Database. It
// does not own the terminal: lines come from a LineReader, output goes to an
// io.Writer.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"simplerdb/pkg/common"
	"simplerdb/pkg/core"
)

const Banner = "Welcome to SimpleRDB CLI. Type 'exit' or 'quit' to quit, '.help' for more."

// LineReader yields one input line per call and io.EOF when input ends.
// *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
}

// ScannerReader reads lines from a plain io.Reader, for piped input and tests.
type ScannerReader struct {
	scanner *bufio.Scanner
}

func NewScannerReader(r io.Reader) *ScannerReader {
	return &ScannerReader{scanner: bufio.NewScanner(r)}
}

func (s *ScannerReader) Readline() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

type Session struct {
	db  *core.Database
	in  LineReader
	out io.Writer

	errColor *color.Color
	okColor  *color.Color
}

func New(db *core.Database, in LineReader, out io.Writer) *Session {
	return &Session{
		db:       db,
		in:       in,
		out:      out,
		errColor: color.New(color.FgRed),
		okColor:  color.New(color.FgGreen),
	}
}

// Run processes lines until exit, quit or end of input. Statement errors are
// printed and the loop continues; only a failing reader stops it early.
func (s *Session) Run() error {
	fmt.Fprintln(s.out, Banner)
	for {
		line, err := s.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if !s.Handle(line) {
			break
		}
	}
	fmt.Fprintln(s.out, "Goodbye!")
	return nil
}

// Handle executes one input line. It returns false when the session should
// end.
func (s *Session) Handle(line string) bool {
	line = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(line), ";"))
	switch {
	case line == "":
		return true
	case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
		return false
	case strings.HasPrefix(line, "."):
		s.meta(strings.Fields(line))
		return true
	}

	res, err := s.db.ExecuteString(line)
	if err != nil {
		s.printError(err)
		return true
	}
	if res.Set != nil {
		s.printRows(res.Set.Columns, res.Set.Rows)
	} else {
		fmt.Fprintln(s.out, res.Message)
	}
	return true
}

func (s *Session) meta(fields []string) {
	cmd := strings.ToLower(fields[0])
	switch cmd {
	case ".help":
		s.printHelp()
		return
	case ".tables":
		names := s.db.TableNames()
		if len(names) == 0 {
			fmt.Fprintln(s.out, "(no tables)")
		}
		for _, n := range names {
			fmt.Fprintln(s.out, n)
		}
		return
	case ".schema", ".tree", ".check":
	default:
		s.errColor.Fprintf(s.out, "Unknown command %q. Type '.help'.\n", cmd)
		return
	}

	if len(fields) != 2 {
		s.errColor.Fprintf(s.out, "Usage: %s <table>\n", cmd)
		return
	}
	t, err := s.db.Table(fields[1])
	if err != nil {
		s.printError(err)
		return
	}

	switch cmd {
	case ".schema":
		fmt.Fprintf(s.out, "%s (%s)\n", fields[1], strings.Join(t.Columns(), ", "))
		fmt.Fprintf(s.out, "  primary key: %s, degree: %d, rows: %d, height: %d\n",
			t.PrimaryKey(), t.Degree(), t.Len(), t.Height())
	case ".tree":
		fmt.Fprint(s.out, t.Render())
	case ".check":
		if err := t.Check(); err != nil {
			s.printError(err)
			return
		}
		s.okColor.Fprintf(s.out, "ok: %d rows, height %d\n", t.Len(), t.Height())
	}
}

func (s *Session) printRows(columns []string, rows []common.Row) {
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	dashes := make([]string, len(columns))
	for i, c := range columns {
		dashes[i] = strings.Repeat("-", max(len(c), 3))
	}
	fmt.Fprintln(w, strings.Join(dashes, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	w.Flush()

	if len(rows) == 1 {
		fmt.Fprintln(s.out, "(1 row)")
	} else {
		fmt.Fprintf(s.out, "(%d rows)\n", len(rows))
	}
}

func (s *Session) printError(err error) {
	s.errColor.Fprintf(s.out, "Error: %v\n", err)
}

func (s *Session) printHelp() {
	fmt.Fprint(s.out, `
Statements:
  CREATE TABLE <name> (<col>, ...)          First column is the primary key
  INSERT INTO <name> VALUES (<v>, ...)      Quote values with ' or " to embed commas
  SELECT * | <col>, ... FROM <name> [WHERE <col> = <value>]

Meta commands:
  .tables             List tables
  .schema <table>     Show columns and index shape
  .tree <table>       Print the primary-key B+Tree
  .check <table>      Verify the B+Tree invariants
  .help               Show this message
  exit | quit         Leave the shell
`)
}
