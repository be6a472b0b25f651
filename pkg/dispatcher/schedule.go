package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/Acurioustractor/actflow/pkg/models"
)

// RefreshSchedules reconciles cron entries with the active schedule-triggered
// workflows: new workflows gain entries, removed or deactivated ones lose
// them. Jobs deliberately run without overlap protection; a slow execution
// never swallows the next firing.
func (d *Dispatcher) RefreshSchedules(ctx context.Context) error {
	workflows, err := d.workflows.ActiveWorkflowsByTriggerType(ctx, models.TriggerTypeSchedule)
	if err != nil {
		return fmt.Errorf("failed to list schedule workflows: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	current := make(map[string]bool, len(workflows))

	for _, workflow := range workflows {
		current[workflow.ID] = true

		if _, registered := d.entries[workflow.ID]; registered {
			continue
		}

		// Standard five-field expressions plus @every descriptors; a CRON_TZ=
		// prefix makes the schedule timezone-aware.
		expression := workflow.TriggerConfigString("cron")
		if expression == "" {
			d.logger.Warn("Schedule workflow has no cron expression", "workflow_id", workflow.ID)

			continue
		}

		workflowID := workflow.ID

		entryID, err := d.cron.AddFunc(expression, func() {
			d.dispatch(workflow, map[string]any{
				"type":     "schedule",
				"fired_at": time.Now().UTC().Format(time.RFC3339),
			})

			d.logger.Debug("Schedule fired", "workflow_id", workflowID)
		})
		if err != nil {
			d.logger.Error("Failed to register schedule",
				"workflow_id", workflow.ID, "cron", expression, "error", err)

			continue
		}

		d.entries[workflow.ID] = entryID
		d.logger.Info("Registered schedule", "workflow_id", workflow.ID, "cron", expression)
	}

	for workflowID, entryID := range d.entries {
		if !current[workflowID] {
			d.cron.Remove(entryID)
			delete(d.entries, workflowID)
			d.logger.Info("Removed schedule", "workflow_id", workflowID)
		}
	}

	return nil
}
