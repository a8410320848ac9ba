package listener

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pixil98/go-battle/internal/battle"
)

type commandKind int

const (
	cmdUnknown commandKind = iota
	cmdHelp
	cmdQueue
	cmdAction
	cmdRejoin
	cmdQuit
)

type command struct {
	kind     commandKind
	action   battle.Action
	battleID string
}

const helpText = `Commands:
  queue                 look for an opponent
  select <n>            choose your starting unit
  move <id>             use a move
  switch <n>            switch to unit n
  item <id> <n>         use an item on unit n
  pass                  do nothing this turn
  flee                  give up the battle
  rejoin <battle id>    resume a battle on this connection
  quit                  disconnect
`

// parseCommand turns one input line into a command.
func parseCommand(line string) (command, error) {
	parts := strings.Fields(strings.ToLower(line))
	if len(parts) == 0 {
		return command{}, fmt.Errorf("empty command")
	}
	args := parts[1:]

	want := func(n int, usage string) error {
		if len(args) != n {
			return fmt.Errorf("usage: %s", usage)
		}
		return nil
	}

	switch parts[0] {
	case "help", "?":
		return command{kind: cmdHelp}, nil
	case "queue", "play":
		return command{kind: cmdQueue}, nil
	case "quit", "exit":
		return command{kind: cmdQuit}, nil
	case "flee":
		return command{kind: cmdAction, action: battle.FleeAction()}, nil
	case "pass":
		return command{kind: cmdAction, action: battle.PassAction()}, nil
	case "move", "attack":
		if err := want(1, "move <id>"); err != nil {
			return command{}, err
		}
		return command{kind: cmdAction, action: battle.MoveAction(args[0])}, nil
	case "switch", "select":
		if err := want(1, parts[0]+" <n>"); err != nil {
			return command{}, err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return command{}, fmt.Errorf("%q is not a unit number", args[0])
		}
		if parts[0] == "select" {
			return command{kind: cmdAction, action: battle.SelectAction(n)}, nil
		}
		return command{kind: cmdAction, action: battle.SwitchAction(n)}, nil
	case "item", "use":
		if err := want(2, "item <id> <n>"); err != nil {
			return command{}, err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("%q is not a unit number", args[1])
		}
		return command{kind: cmdAction, action: battle.ItemAction(args[0], n)}, nil
	case "rejoin":
		if err := want(1, "rejoin <battle id>"); err != nil {
			return command{}, err
		}
		return command{kind: cmdRejoin, battleID: args[0]}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q, type help for a list", parts[0])
	}
}
