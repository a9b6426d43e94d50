package assistant

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// LineSource yields input lines one at a time. Next returns io.EOF when the
// input is exhausted. Speech-to-text front ends implement it too.
type LineSource interface {
	Next() (string, error)
}

// MaxLineBytes bounds one input line read by ReaderSource.
const MaxLineBytes = 1 << 20

// ErrLineTooLong is returned for a line over MaxLineBytes. The rest of the
// line is consumed, so the next read starts on the following line.
var ErrLineTooLong = fmt.Errorf("input line too long (limit %d bytes)", MaxLineBytes)

// ReaderSource reads newline-terminated lines from a reader, printing a
// prompt before each read when a prompt writer is set.
type ReaderSource struct {
	reader  *bufio.Reader
	prompt  string
	out     io.Writer
	maxLine int
}

func NewReaderSource(r io.Reader, out io.Writer, prompt string) *ReaderSource {
	return &ReaderSource{
		reader:  bufio.NewReaderSize(r, 64*1024),
		prompt:  prompt,
		out:     out,
		maxLine: MaxLineBytes,
	}
}

func (s *ReaderSource) Next() (string, error) {
	if s.out != nil && s.prompt != "" {
		fmt.Fprint(s.out, s.prompt)
	}
	return s.readLine()
}

func (s *ReaderSource) readLine() (string, error) {
	var line []byte
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > s.maxLine {
			if errors.Is(err, bufio.ErrBufferFull) {
				s.skipLine()
			}
			return "", ErrLineTooLong
		}
		line = append(line, chunk...)
		switch {
		case err == nil:
			return string(bytes.TrimRight(line, "\r\n")), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(line) == 0 {
				return "", io.EOF
			}
			return string(bytes.TrimRight(line, "\r")), nil
		default:
			return "", err
		}
	}
}

func (s *ReaderSource) skipLine() {
	for {
		_, err := s.reader.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return
		}
	}
}

// SliceSource replays fixed lines; used for scripted sessions.
type SliceSource struct {
	lines []string
	pos   int
}

func NewSliceSource(lines ...string) *SliceSource {
	return &SliceSource{lines: lines}
}

func (s *SliceSource) Next() (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

// Prompt writes question and reads the answer from the same input, so it
// can serve first-run configuration before the session starts.
func (s *ReaderSource) Prompt(question string) (string, error) {
	if s.out != nil {
		fmt.Fprint(s.out, question)
	}
	return s.readLine()
}
