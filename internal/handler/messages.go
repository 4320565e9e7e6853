package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/emprestaae/empresta-api/internal/middleware"
	"github.com/emprestaae/empresta-api/internal/model"
	"github.com/emprestaae/empresta-api/internal/queue"
	"github.com/emprestaae/empresta-api/internal/repository"
)

// MessageHandler serves direct messages between users.
type MessageHandler struct {
	Messages *repository.MessageRepo
	Users    *repository.UserRepo
	Events   Events
}

func NewMessageHandler(m *repository.MessageRepo, u *repository.UserRepo, ev Events) *MessageHandler {
	return &MessageHandler{Messages: m, Users: u, Events: eventsOrNop(ev)}
}

type sendMessageReq struct {
	RecipientID string  `json:"recipientId" validate:"required"`
	Content     string  `json:"content" validate:"required,max=2000"`
	ItemID      *string `json:"itemId" validate:"omitempty,min=1"`
	LoanID      *string `json:"loanId" validate:"omitempty,min=1"`
}

type markReadReq struct {
	MessageIDs []string `json:"messageIds" validate:"required_without=UserID,max=500,dive,required"`
	UserID     string   `json:"userId" validate:"required_without=MessageIDs"`
}

// Send delivers a message to an active user.
func (h *MessageHandler) Send(c echo.Context) error {
	var req sendMessageReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	uid := middleware.UserID(c)
	if req.RecipientID == uid {
		return fail(repository.ErrSelfMessage)
	}
	to, err := h.Users.FindByID(ctx, req.RecipientID)
	if err != nil {
		return err
	}
	if to == nil || !to.IsActive {
		return notFound("recipient")
	}
	msg, err := h.Messages.Send(ctx, model.MessageCreate{
		SenderID:    uid,
		RecipientID: req.RecipientID,
		ItemID:      req.ItemID,
		LoanID:      req.LoanID,
		Content:     req.Content,
	})
	if err != nil {
		return fail(err)
	}
	ev := queue.Event{Type: queue.MessageSent, ActorID: uid, RecipientID: msg.RecipientID, MessageID: msg.ID}
	if msg.ItemID != nil {
		ev.ItemID = *msg.ItemID
	}
	if msg.LoanID != nil {
		ev.LoanID = *msg.LoanID
	}
	h.Events.Publish(ctx, ev)
	return c.JSON(http.StatusCreated, msg)
}

// Conversations lists one entry per counterpart, latest first.
func (h *MessageHandler) Conversations(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Messages.GetUserConversations(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Conversation pages through the messages exchanged with :userId, oldest
// first.
func (h *MessageHandler) Conversation(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	page, err := h.Messages.GetConversation(ctx, middleware.UserID(c), c.Param("userId"), pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// MarkRead flags messages addressed to the caller as read, either by id or
// everything from one sender.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	var req markReadReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	uid := middleware.UserID(c)
	var (
		n   int64
		err error
	)
	if req.UserID != "" {
		n, err = h.Messages.MarkConversationRead(ctx, uid, req.UserID)
	} else {
		n, err = h.Messages.MarkAsRead(ctx, uid, req.MessageIDs)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

func (h *MessageHandler) UnreadCount(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	n, err := h.Messages.CountUnread(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}
