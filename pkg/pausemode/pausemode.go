package pausemode

import (
	"context"
	"fmt"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/drive"
)

// PauseMode stops the drivetrain until another mode takes over.
type PauseMode struct {
	Drive *drive.Drive
}

func (t *PauseMode) Name() string {
	return "Pause mode"
}

func (t *PauseMode) Start(ctx context.Context) {
	fmt.Println("Pause: stopping drive")
	t.Drive.Off()
}

func (t *PauseMode) Stop() {
}
