package message

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a message payload.
type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindFile   Kind = "file"
	KindSystem Kind = "system"
	KindCall   Kind = "call"
)

// DeliveryStatus tracks the coarse delivery state of a message.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// TombstoneBody replaces the original content once a message is deleted.
const TombstoneBody = "This message was deleted"

// MaxBodyLen bounds the text payload.
const MaxBodyLen = 1000

// ReplyRef is a non-owning back-reference to an earlier message. The
// snippet and sender are denormalized at send time and never cascade.
type ReplyRef struct {
	MessageID uuid.UUID
	Snippet   string
	SenderID  uuid.UUID
}

// Attachment describes a stored file backing a file/image message.
type Attachment struct {
	FileURL     string
	FileName    string
	FileSize    int64
	StoragePath string
	MimeType    string
}

// CallData is the structured sub-record carried by call messages.
type CallData struct {
	CallType  string // audio, video
	Status    string // requested, accepted, rejected, ended, missed
	CallerID  uuid.UUID
	StartedAt time.Time
	EndedAt   *time.Time
}

// Receipt records one user's read/view of a message. Each user appears at
// most once per message.
type Receipt struct {
	UserID   uuid.UUID
	ReadAt   *time.Time
	ViewedAt *time.Time
}

// Message represents the messages table.
type Message struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	SenderID  uuid.UUID
	Body      string
	Kind      Kind
	Status    DeliveryStatus
	State     State
	ReplyTo   *ReplyRef
	Receipts  []Receipt
	Edited    bool
	EditedAt  *time.Time
	DeletedAt *time.Time

	Attachment   *Attachment
	AutoDeleteAt *time.Time
	CallData     *CallData

	CreatedAt time.Time
}

// Deleted reports whether the message has been tombstoned.
func (m *Message) Deleted() bool {
	return m.State == StateTombstoned
}

// ReceiptFor returns the receipt for userID, if any.
func (m *Message) ReceiptFor(userID uuid.UUID) *Receipt {
	for i := range m.Receipts {
		if m.Receipts[i].UserID == userID {
			return &m.Receipts[i]
		}
	}
	return nil
}

// ReadBy reports whether userID has a read receipt on the message.
func (m *Message) ReadBy(userID uuid.UUID) bool {
	r := m.ReceiptFor(userID)
	return r != nil && r.ReadAt != nil
}

// Tombstone marks the message deleted, replacing the body and hiding the
// attachment from external views. The transition is irreversible.
func (m *Message) Tombstone(now time.Time) bool {
	if !m.State.CanTransition(StateTombstoned) {
		return false
	}
	m.State = StateTombstoned
	m.Body = TombstoneBody
	m.DeletedAt = &now
	return true
}
