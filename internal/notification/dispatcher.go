package notification

import (
	"alpha-qms/internal/event"
	"alpha-qms/internal/user"
	"context"
	"fmt"
	"log"
)

const maxAttempts = 3

// RecipientDirectory resolves user ids to deliverable addresses
type RecipientDirectory interface {
	FindByID(ctx context.Context, id uint64) (*user.User, error)
}

// GroupDirectory resolves the audience subscribed to a document type
// through notifying groups.
type GroupDirectory interface {
	RecipientsForDocumentType(ctx context.Context, docTypeID uint64) ([]user.User, error)
}

// Dispatcher turns domain events into queued emails and pushes them
// through the relay. It runs on the event bus worker pool and never
// surfaces errors to publishers.
type Dispatcher struct {
	repository Repository
	directory  RecipientDirectory
	groups     GroupDirectory
	relay      Relay
}

func NewDispatcher(repository Repository, directory RecipientDirectory, groups GroupDirectory, relay Relay) *Dispatcher {
	return &Dispatcher{repository: repository, directory: directory, groups: groups, relay: relay}
}

// Handle consumes bus events and enqueues mail for the affected users
func (d *Dispatcher) Handle(ctx context.Context, e event.Event) {
	switch payload := e.Payload.(type) {
	case event.DocumentCreatedPayload:
		d.enqueue(ctx, payload.AuthorID, TypeDocumentCreated,
			fmt.Sprintf("Document %s created", payload.Code),
			fmt.Sprintf("Your document %q (%s) was registered and is ready for editing.", payload.Title, payload.Code),
			"document", payload.DocumentID)
		d.fanOutDocumentCreated(ctx, payload)

	case event.DocumentExpiringPayload:
		d.enqueue(ctx, payload.AuthorID, TypeDocumentExpiring,
			fmt.Sprintf("Document %s expires in %d days", payload.Code, payload.DaysLeft),
			fmt.Sprintf("Document %q (%s) reaches the end of its validity in %d days. Plan a revision.", payload.Title, payload.Code, payload.DaysLeft),
			"document", payload.DocumentID)

	case event.ApprovalPendingPayload:
		body := fmt.Sprintf("Document %q is waiting for your decision.", payload.DocumentTitle)
		if payload.Deadline != nil {
			body += fmt.Sprintf(" Deadline: %s.", payload.Deadline.Format("2006-01-02"))
		}
		d.enqueue(ctx, payload.ApproverID, TypeApprovalPending,
			"Approval requested: "+payload.DocumentTitle,
			body,
			"approval_flow", payload.FlowID)

	case event.NonConformityOpenedPayload:
		if payload.ResponsibleID == nil {
			return
		}
		d.enqueue(ctx, *payload.ResponsibleID, TypeNonConformity,
			fmt.Sprintf("Non-conformity %s opened", payload.Code),
			fmt.Sprintf("Non-conformity %q (%s, severity %s) was assigned to you.", payload.Title, payload.Code, payload.Severity),
			"non_conformity", payload.NonConformityID)

	case event.CorrectiveActionAssignedPayload:
		d.enqueue(ctx, payload.ResponsibleID, TypeActionAssigned,
			fmt.Sprintf("Action assigned on %s", payload.Code),
			fmt.Sprintf("A corrective action on %s was assigned to you: %s", payload.Code, payload.Description),
			"corrective_action", payload.ActionID)
	}
}

// fanOutDocumentCreated mails active members of notifying groups linked
// to the new document's type. The author already got a personal notice,
// so they are skipped here.
func (d *Dispatcher) fanOutDocumentCreated(ctx context.Context, payload event.DocumentCreatedPayload) {
	if payload.DocumentTypeID == nil {
		return
	}

	recipients, err := d.groups.RecipientsForDocumentType(ctx, *payload.DocumentTypeID)
	if err != nil {
		log.Printf("[ERROR] resolving group recipients for document type %d: %v", *payload.DocumentTypeID, err)
		return
	}

	subject := fmt.Sprintf("New document %s", payload.Code)
	body := fmt.Sprintf("Document %q (%s) was created in an area your group follows.", payload.Title, payload.Code)
	for i := range recipients {
		if recipients[i].ID == payload.AuthorID {
			continue
		}
		d.enqueueUser(ctx, &recipients[i], TypeDocumentCreated, subject, body, "document", payload.DocumentID)
	}
}

// enqueue persists the row first, then attempts delivery. A failed send
// leaves the row for the reprocess pass.
func (d *Dispatcher) enqueue(ctx context.Context, recipientID uint64, notifType, subject, body, entityType string, entityID uint64) {
	recipient, err := d.directory.FindByID(ctx, recipientID)
	if err != nil {
		log.Printf("[ERROR] notification recipient %d lookup: %v", recipientID, err)
		return
	}
	d.enqueueUser(ctx, recipient, notifType, subject, body, entityType, entityID)
}

func (d *Dispatcher) enqueueUser(ctx context.Context, recipient *user.User, notifType, subject, body, entityType string, entityID uint64) {
	if !recipient.IsActive {
		return
	}

	n := &EmailNotification{
		RecipientID: recipient.ID,
		Recipient:   recipient.Email,
		Type:        notifType,
		Subject:     subject,
		Body:        body,
		Status:      StatusPending,
		EntityType:  entityType,
		EntityID:    entityID,
	}
	if err := d.repository.Create(ctx, n); err != nil {
		log.Printf("[ERROR] queueing notification for user %d: %v", recipient.ID, err)
		return
	}

	d.deliver(ctx, n)
}

func (d *Dispatcher) deliver(ctx context.Context, n *EmailNotification) {
	if err := d.relay.Send(ctx, n.Recipient, n.Subject, n.Body); err != nil {
		log.Printf("[ERROR] sending notification %d: %v", n.ID, err)
		if markErr := d.repository.MarkError(ctx, n.ID, err.Error()); markErr != nil {
			log.Printf("[ERROR] marking notification %d errored: %v", n.ID, markErr)
		}
		return
	}
	if err := d.repository.MarkSent(ctx, n.ID); err != nil {
		log.Printf("[ERROR] marking notification %d sent: %v", n.ID, err)
	}
}

// ProcessPending retries undelivered rows. Meant for a periodic sweep.
func (d *Dispatcher) ProcessPending(ctx context.Context, limit int) (int, error) {
	rows, err := d.repository.ListPending(ctx, maxAttempts, limit)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range rows {
		n := rows[i]
		if err := d.relay.Send(ctx, n.Recipient, n.Subject, n.Body); err != nil {
			if markErr := d.repository.MarkError(ctx, n.ID, err.Error()); markErr != nil {
				log.Printf("[ERROR] marking notification %d errored: %v", n.ID, markErr)
			}
			continue
		}
		if err := d.repository.MarkSent(ctx, n.ID); err != nil {
			log.Printf("[ERROR] marking notification %d sent: %v", n.ID, err)
			continue
		}
		delivered++
	}
	return delivered, nil
}
