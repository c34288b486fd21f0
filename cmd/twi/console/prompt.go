package console

import (
	"strings"

	"github.com/chzyer/readline"
)

// Confirm asks a yes/no question; anything but an explicit yes is a no.
func Confirm(question string) (bool, error) {
	rl, err := readline.New(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	defer func() { _ = rl.Close() }()
	response, err := rl.Readline()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Shell returns a line reader with history for interactive sessions.
func Shell(prompt string, completer readline.AutoCompleter) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          prompt,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
}
