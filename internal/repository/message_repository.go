package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emprestaae/empresta-api/internal/model"
)

const messageColumns = "id, sender_id, recipient_id, item_id, loan_id, content, is_read, created_at, updated_at"

var messageTable = Table{
	Name:       "messages",
	Columns:    messageColumns,
	Filterable: []string{"sender_id", "recipient_id", "item_id", "loan_id", "is_read"},
}

// MessageRepo stores direct messages and derives conversations from them.
type MessageRepo struct{ *Base[model.Message] }

func NewMessageRepo(ex *Executor) *MessageRepo {
	return &MessageRepo{NewBase[model.Message](ex, messageTable)}
}

// Send stores a message.  Users cannot message themselves.
func (r *MessageRepo) Send(ctx context.Context, in model.MessageCreate) (*model.Message, error) {
	if in.SenderID == in.RecipientID {
		return nil, ErrSelfMessage
	}
	s := Set{
		{Column: "sender_id", Value: in.SenderID},
		{Column: "recipient_id", Value: in.RecipientID},
	}
	s = setIf(s, "item_id", in.ItemID)
	s = setIf(s, "loan_id", in.LoanID)
	s = append(s, Assignment{Column: "content", Value: in.Content})
	return r.Base.Create(ctx, s)
}

type messageDetailRow struct {
	model.Message
	SenderFirstName    string            `db:"sender_first_name"`
	SenderLastName     string            `db:"sender_last_name"`
	SenderAvatarURL    *string           `db:"sender_avatar_url"`
	SenderVerified     bool              `db:"sender_is_verified"`
	RecipientFirstName string            `db:"recipient_first_name"`
	RecipientLastName  string            `db:"recipient_last_name"`
	RecipientAvatarURL *string           `db:"recipient_avatar_url"`
	RecipientVerified  bool              `db:"recipient_is_verified"`
	ItemTitle          *string           `db:"item_title"`
	LoanStatus         *model.LoanStatus `db:"loan_status"`
}

func (row messageDetailRow) details() model.MessageWithDetails {
	out := model.MessageWithDetails{
		Message: row.Message,
		Sender: model.UserSummary{
			ID:         row.SenderID,
			FirstName:  row.SenderFirstName,
			LastName:   row.SenderLastName,
			AvatarURL:  row.SenderAvatarURL,
			IsVerified: row.SenderVerified,
		},
		Recipient: model.UserSummary{
			ID:         row.RecipientID,
			FirstName:  row.RecipientFirstName,
			LastName:   row.RecipientLastName,
			AvatarURL:  row.RecipientAvatarURL,
			IsVerified: row.RecipientVerified,
		},
	}
	if row.Message.ItemID != nil && row.ItemTitle != nil {
		out.Item = &model.ItemRef{ID: *row.Message.ItemID, Title: *row.ItemTitle}
	}
	if row.Message.LoanID != nil && row.LoanStatus != nil {
		out.Loan = &model.LoanRef{ID: *row.Message.LoanID, Status: *row.LoanStatus}
	}
	return out
}

var messageDetailSelect = "SELECT " + prefixed("m", messageColumns) +
	", s.first_name AS sender_first_name, s.last_name AS sender_last_name" +
	", s.avatar_url AS sender_avatar_url, s.is_verified AS sender_is_verified" +
	", rc.first_name AS recipient_first_name, rc.last_name AS recipient_last_name" +
	", rc.avatar_url AS recipient_avatar_url, rc.is_verified AS recipient_is_verified" +
	", it.title AS item_title, lo.status AS loan_status" +
	" FROM messages m" +
	" JOIN users s ON s.id = m.sender_id" +
	" JOIN users rc ON rc.id = m.recipient_id" +
	" LEFT JOIN items it ON it.id = m.item_id" +
	" LEFT JOIN loans lo ON lo.id = m.loan_id"

// FindWithDetails returns the message with both users and its item or loan
// context, or nil.
func (r *MessageRepo) FindWithDetails(ctx context.Context, id string) (*model.MessageWithDetails, error) {
	row, err := Get[messageDetailRow](ctx, r.ex, messageDetailSelect+" WHERE m.id = ?", id)
	if err != nil || row == nil {
		return nil, err
	}
	out := row.details()
	return &out, nil
}

const betweenSQL = " WHERE ((m.sender_id = ? AND m.recipient_id = ?) OR (m.sender_id = ? AND m.recipient_id = ?))"

// GetConversation pages through the messages exchanged by two users, oldest
// first.
func (r *MessageRepo) GetConversation(ctx context.Context, userID, otherID string, req PageRequest) (Page[model.MessageWithDetails], error) {
	args := []any{userID, otherID, otherID, userID}
	total, err := r.ex.Count(ctx, "SELECT COUNT(*) FROM messages m"+betweenSQL, args...)
	if err != nil {
		return Page[model.MessageWithDetails]{}, err
	}
	rows, err := Select[messageDetailRow](ctx, r.ex,
		messageDetailSelect+betweenSQL+" ORDER BY m.created_at ASC, m.id ASC LIMIT ? OFFSET ?",
		append(args, req.Limit, req.Offset())...)
	if err != nil {
		return Page[model.MessageWithDetails]{}, err
	}
	data := make([]model.MessageWithDetails, 0, len(rows))
	for _, row := range rows {
		data = append(data, row.details())
	}
	return NewPage(data, total, req), nil
}

type conversationRow struct {
	OtherID       string    `db:"other_id"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	AvatarURL     *string   `db:"avatar_url"`
	IsVerified    bool      `db:"is_verified"`
	LastID        string    `db:"last_id"`
	LastContent   string    `db:"last_content"`
	LastSenderID  string    `db:"last_sender_id"`
	LastCreatedAt time.Time `db:"last_created_at"`
	UnreadCount   int       `db:"unread_count"`
}

// conversationsSQL takes the user id five times.
const conversationsSQL = `WITH ranked AS (
	SELECT m.id, m.content, m.sender_id, m.created_at,
		CASE WHEN m.sender_id = ? THEN m.recipient_id ELSE m.sender_id END AS other_id,
		ROW_NUMBER() OVER (
			PARTITION BY CASE WHEN m.sender_id = ? THEN m.recipient_id ELSE m.sender_id END
			ORDER BY m.created_at DESC, m.id DESC
		) AS rn
	FROM messages m
	WHERE m.sender_id = ? OR m.recipient_id = ?
),
unread AS (
	SELECT sender_id AS other_id, COUNT(*) AS unread_count
	FROM messages
	WHERE recipient_id = ? AND is_read = 0
	GROUP BY sender_id
)
SELECT u.id AS other_id, u.first_name, u.last_name, u.avatar_url, u.is_verified,
	ranked.id AS last_id, ranked.content AS last_content,
	ranked.sender_id AS last_sender_id, ranked.created_at AS last_created_at,
	COALESCE(unread.unread_count, 0) AS unread_count
FROM ranked
JOIN users u ON u.id = ranked.other_id
LEFT JOIN unread ON unread.other_id = ranked.other_id
WHERE ranked.rn = 1
ORDER BY ranked.created_at DESC`

// GetUserConversations returns one entry per counterpart with the latest
// message and the number of unread messages from them, most recent first.
func (r *MessageRepo) GetUserConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	rows, err := Select[conversationRow](ctx, r.ex, conversationsSQL, userID, userID, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Conversation{
			OtherUser: model.UserSummary{
				ID:         row.OtherID,
				FirstName:  row.FirstName,
				LastName:   row.LastName,
				AvatarURL:  row.AvatarURL,
				IsVerified: row.IsVerified,
			},
			LastMessage: model.LastMessage{
				ID:        row.LastID,
				Content:   row.LastContent,
				SenderID:  row.LastSenderID,
				CreatedAt: row.LastCreatedAt,
			},
			UnreadCount: row.UnreadCount,
		})
	}
	return out, nil
}

// MarkAsRead flags the given messages as read.  Only messages addressed to
// readerID are touched; the number changed is returned.
func (r *MessageRepo) MarkAsRead(ctx context.Context, readerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In("UPDATE messages SET is_read = 1 WHERE recipient_id = ? AND id IN (?)", readerID, ids)
	if err != nil {
		return 0, err
	}
	res, err := r.ex.Exec(ctx, r.ex.DB().Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkConversationRead flags everything otherID sent to readerID as read.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, readerID, otherID string) (int64, error) {
	res, err := r.ex.Exec(ctx, "UPDATE messages SET is_read = 1 WHERE recipient_id = ? AND sender_id = ? AND is_read = 0",
		readerID, otherID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *MessageRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	return r.Count(ctx, Filters{"recipient_id": userID, "is_read": false})
}
