package equipment

import (
	"alpha-qms/internal/event"
	"context"
	"log"
)

// Reactor rolls equipment due dates when a service record completes.
// Runs off the event bus so the save path never waits on it.
type Reactor struct {
	repository Repository
}

func NewReactor(repository Repository) *Reactor {
	return &Reactor{repository: repository}
}

// Handle consumes service-record events. Only a completed calibration or
// maintenance carrying a next-service date moves the schedule.
func (r *Reactor) Handle(ctx context.Context, e event.Event) {
	if e.Name != event.ServiceRecordLogged {
		return
	}
	payload, ok := e.Payload.(event.ServiceRecordLoggedPayload)
	if !ok {
		return
	}

	if payload.Status != string(RecordCompleted) || payload.NextService == nil {
		return
	}
	serviceType := ServiceType(payload.ServiceType)
	if !serviceType.RollsNextDue() {
		return
	}

	err := r.repository.RollNextDue(ctx, payload.EquipmentID, serviceType, *payload.NextService)
	if err != nil {
		log.Printf("[ERROR] rolling %s due date for equipment %d: %v",
			payload.ServiceType, payload.EquipmentID, err)
	}
}
