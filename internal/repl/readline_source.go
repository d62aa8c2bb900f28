package repl

import (
	"io"

	"github.com/chzyer/readline"
)

// ReadlineSource is the default LineSource: github.com/chzyer/readline
// configured for history-aware line reading and persisted to historyPath.
// Accept is called only on a successfully parsed top-level statement, not
// on every intermediate continuation line, so history is recorded manually
// rather than through readline's own auto-save.
type ReadlineSource struct {
	inst *readline.Instance
}

// NewReadlineSource opens a readline instance persisting history to
// historyPath.
func NewReadlineSource(historyPath string) (*ReadlineSource, error) {
	inst, err := readline.NewEx(&readline.Config{
		Prompt:                 "",
		HistoryFile:            historyPath,
		DisableAutoSaveHistory: true,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
	})
	if err != nil {
		return nil, err
	}
	return &ReadlineSource{inst: inst}, nil
}

func (s *ReadlineSource) Readline(prompt string) (string, error) {
	s.inst.SetPrompt(prompt)
	line, err := s.inst.Readline()
	switch err {
	case readline.ErrInterrupt:
		return "", ErrInterrupted
	case io.EOF:
		return "", io.EOF
	default:
		return line, err
	}
}

// Accept records text (a fully-parsed top-level statement) as one history
// entry and persists the history file immediately, so history survives a
// hard kill of the process.
func (s *ReadlineSource) Accept(text string) error {
	return s.inst.SaveHistory(text)
}

func (s *ReadlineSource) Close() error {
	return s.inst.Close()
}
