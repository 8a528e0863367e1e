package game

import (
	"fmt"

	"github.com/skylane-game/skylane/pkg/command"
	"github.com/skylane-game/skylane/pkg/game/types"
)

// ApplyCommand maps a player command onto the ship that player owns. The
// command sets the ship's control state; World.Step integrates controls
// into physics afterwards, so the same command applied on the client and
// the server yields the same motion.
func ApplyCommand(w *types.World, cmd command.PlayerCommand) error {
	ship := w.ShipByOwner(cmd.Player)
	if ship == nil {
		return fmt.Errorf("no ship owned by player %s", cmd.Player)
	}

	ship.Controls = types.ControlState{
		Thrust:        cmd.Controls.Has(command.ControlThrust),
		Reverse:       cmd.Controls.Has(command.ControlReverse),
		TurnLeft:      cmd.Controls.Has(command.ControlTurnLeft),
		TurnRight:     cmd.Controls.Has(command.ControlTurnRight),
		FirePrimary:   cmd.Controls.Has(command.ControlFirePrimary),
		FireSecondary: cmd.Controls.Has(command.ControlFireSecondary),
	}
	if cmd.HasTargetPoint {
		ship.Controls.HasTarget = true
		ship.Controls.Target = cmd.TargetPoint
	}

	return nil
}
