package auth

import "complaintdesk/backend/internal/config"

// Capability is what the caller proved with the tokens on the request.
// Either field may be nil.
type Capability struct {
	Staff *Claims
	Owner *Claims
}

func (c Capability) IsStaff() bool {
	return c.Staff != nil
}

// OwnsRecord reports whether the owner token is bound to the given record.
func (c Capability) OwnsRecord(recordType, recordID string) bool {
	return c.Owner != nil && c.Owner.RecordType == recordType && c.Owner.RecordID == recordID
}

// OwnerEmail returns the email carried by the owner token, if any.
func (c Capability) OwnerEmail() string {
	if c.Owner == nil {
		return ""
	}
	return c.Owner.Email
}

// Actor names the caller in audit logs.
func (c Capability) Actor() string {
	if c.Staff != nil && c.Staff.Email != "" {
		return c.Staff.Email
	}
	return config.StaffActor
}
