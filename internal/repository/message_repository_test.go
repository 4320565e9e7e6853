package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emprestaae/empresta-api/internal/model"
)

func TestMessageRepo_Send(t *testing.T) {
	t.Run("stores message", func(t *testing.T) {
		ex, mock := newMock(t)
		repo := NewMessageRepo(ex)
		itemID := "item1"

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages (id, sender_id, recipient_id, item_id, content) VALUES (?, ?, ?, ?, ?)")).
			WithArgs(sqlmock.AnyArg(), "a", "b", "item1", "is it free on Sunday?").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM messages WHERE id = \?`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "recipient_id", "item_id", "loan_id", "content", "is_read", "created_at", "updated_at"}).
				AddRow("m1", "a", "b", "item1", nil, "is it free on Sunday?", false, stamp, stamp))

		m, err := repo.Send(context.Background(), model.MessageCreate{
			SenderID: "a", RecipientID: "b", ItemID: &itemID, Content: "is it free on Sunday?",
		})
		require.NoError(t, err)
		assert.False(t, m.IsRead)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects self message", func(t *testing.T) {
		ex, mock := newMock(t)
		repo := NewMessageRepo(ex)

		_, err := repo.Send(context.Background(), model.MessageCreate{SenderID: "a", RecipientID: "a", Content: "hi"})
		assert.True(t, errors.Is(err, ErrSelfMessage))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMessageRepo_GetUserConversations(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewMessageRepo(ex)
	later := stamp.Add(2 * time.Hour)

	cols := []string{
		"other_id", "first_name", "last_name", "avatar_url", "is_verified",
		"last_id", "last_content", "last_sender_id", "last_created_at", "unread_count",
	}
	mock.ExpectQuery(`ROW_NUMBER\(\) OVER .+ WHERE ranked.rn = 1 ORDER BY ranked.created_at DESC`).
		WithArgs("me", "me", "me", "me", "me").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("b", "Bia", "Lima", nil, true, "m9", "see you", "b", later, 2).
			AddRow("c", "Caio", "Reis", nil, false, "m3", "thanks", "me", stamp, 0))

	convs, err := repo.GetUserConversations(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "b", convs[0].OtherUser.ID)
	assert.Equal(t, 2, convs[0].UnreadCount)
	assert.Equal(t, "see you", convs[0].LastMessage.Content)
	assert.Equal(t, 0, convs[1].UnreadCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepo_MarkAsRead(t *testing.T) {
	ex, mock := newMock(t)
	repo := NewMessageRepo(ex)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET is_read = 1 WHERE recipient_id = ? AND id IN (?, ?)")).
		WithArgs("me", "m1", "m2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE messages SET is_read = 1 WHERE recipient_id = ? AND sender_id = ? AND is_read = 0")).
		WithArgs("me", "b").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM messages WHERE is_read = ? AND recipient_id = ?")).
		WithArgs(false, "me").
		WillReturnRows(countRows(0))

	n, err := repo.MarkAsRead(context.Background(), "me", []string{"m1", "m2"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.MarkAsRead(context.Background(), "me", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.MarkConversationRead(context.Background(), "me", "b")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	unread, err := repo.CountUnread(context.Background(), "me")
	require.NoError(t, err)
	assert.Zero(t, unread)
	assert.NoError(t, mock.ExpectationsWereMet())
}
