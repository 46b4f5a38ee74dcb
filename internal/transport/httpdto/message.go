package httpdto

import (
	"time"

	"pairchat/internal/domain/message"
)

type SendFileRequest struct {
	RoomID   string `json:"room_id"`
	UploadID string `json:"upload_id"`
	Caption  string `json:"caption,omitempty"`
}

type ReplyRefView struct {
	MessageID string `json:"message_id"`
	Snippet   string `json:"snippet,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`
}

type AttachmentView struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

type ReceiptView struct {
	UserID   string     `json:"user_id"`
	ReadAt   *time.Time `json:"read_at,omitempty"`
	ViewedAt *time.Time `json:"viewed_at,omitempty"`
}

type MessageView struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"room_id"`
	SenderID  string     `json:"sender_id"`
	Body      string     `json:"body"`
	Kind      string     `json:"kind"`
	Status    string     `json:"status"`
	Deleted   bool       `json:"deleted"`
	Edited    bool       `json:"edited,omitempty"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	ReplyTo    *ReplyRefView   `json:"reply_to,omitempty"`
	Attachment *AttachmentView `json:"attachment,omitempty"`
	Receipts   []ReceiptView   `json:"receipts,omitempty"`

	AutoDeleteAt *time.Time `json:"auto_delete_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// FromMessage builds the external view. Tombstoned messages expose the
// placeholder body only; attachment fields are hidden.
func FromMessage(m message.Message) MessageView {
	view := MessageView{
		ID:           m.ID.String(),
		RoomID:       m.RoomID.String(),
		SenderID:     m.SenderID.String(),
		Body:         m.Body,
		Kind:         string(m.Kind),
		Status:       string(m.Status),
		Deleted:      m.Deleted(),
		Edited:       m.Edited,
		EditedAt:     m.EditedAt,
		DeletedAt:    m.DeletedAt,
		AutoDeleteAt: m.AutoDeleteAt,
		CreatedAt:    m.CreatedAt,
	}

	if m.ReplyTo != nil {
		view.ReplyTo = &ReplyRefView{
			MessageID: m.ReplyTo.MessageID.String(),
			Snippet:   m.ReplyTo.Snippet,
			SenderID:  m.ReplyTo.SenderID.String(),
		}
	}
	if m.Attachment != nil && !m.Deleted() {
		view.Attachment = &AttachmentView{
			FileURL:  m.Attachment.FileURL,
			FileName: m.Attachment.FileName,
			FileSize: m.Attachment.FileSize,
			MimeType: m.Attachment.MimeType,
		}
	}
	for _, rec := range m.Receipts {
		view.Receipts = append(view.Receipts, ReceiptView{
			UserID:   rec.UserID.String(),
			ReadAt:   rec.ReadAt,
			ViewedAt: rec.ViewedAt,
		})
	}
	return view
}

func FromMessages(msgs []message.Message) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, FromMessage(m))
	}
	return out
}

type UnreadCountResponse struct {
	RoomID string `json:"room_id"`
	Count  int    `json:"count"`
}
