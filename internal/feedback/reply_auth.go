package feedback

import (
	"complaintdesk/backend/internal/errs"
	"complaintdesk/backend/internal/models"
)

// ReplyOp is a change to an existing reply.
type ReplyOp string

const (
	ReplyEdit   ReplyOp = "edit"
	ReplyDelete ReplyOp = "delete"
)

// AuthorizeReplyChange decides whether a requester may edit or delete reply.
//
//	sender admin                         allow
//	sender user, email equal, non-empty  allow
//	sender user, otherwise               deny
//	any other sender                     deny
func AuthorizeReplyChange(reply models.Reply, requesterEmail string, op ReplyOp) error {
	switch reply.Sender {
	case models.SenderAdmin:
		return nil
	case models.SenderUser:
		if requesterEmail == "" || reply.Email != requesterEmail {
			if op == ReplyDelete {
				return errs.Forbidden("Not allowed to delete this reply")
			}
			return errs.Forbidden("Not allowed to edit this reply")
		}
		return nil
	default:
		return errs.Forbidden("Not allowed")
	}
}
