package detector

import (
	"log"

	"github.com/groupthink/groupthink/internal/types"
)

// Notifier receives detection outcomes that someone should hear about.
// Implementations must not block; they are called from detection workers.
type Notifier interface {
	// DetectionPending fires when a run needs a user decision.
	DetectionPending(d *types.DuplicateDetection)

	// DetectionAutoResolved fires when a run grouped the subject without
	// asking. groupID is the group the subject ended up in.
	DetectionAutoResolved(d *types.DuplicateDetection, groupID string)
}

// LogNotifier writes notifications to the process log
type LogNotifier struct{}

func (LogNotifier) DetectionPending(d *types.DuplicateDetection) {
	log.Printf("[NOTIFY] detection %s for task %s needs review (%d candidates)",
		d.ID, d.TaskID, len(d.Candidates))
}

func (LogNotifier) DetectionAutoResolved(d *types.DuplicateDetection, groupID string) {
	log.Printf("[NOTIFY] detection %s auto-grouped task %s into %s", d.ID, d.TaskID, groupID)
}
