package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/database"
	"github.com/dmail-project/dmail-backend/internal/models"
	"github.com/dmail-project/dmail-backend/internal/services"
)

// systemSenderID writes the literal admin messages announced inside chats.
const systemSenderID models.UserID = 0

func (s *Session) handleSendMessage(ctx context.Context, data json.RawMessage) {
	var req models.SendMessageData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvSendMessageResponse, models.State(models.StateServerError))
		return
	}

	respond := func(state string) {
		s.reply(models.SrvSendMessageResponse, models.SendMessageResponse{
			State:    state,
			ClientID: req.ClientID,
			ChatID:   req.ChatID,
		})
	}

	if len(req.SerializedContent) > config.Get().Safety.MaxMsgLength {
		respond(models.StateLenthLimitExceeded)
		return
	}

	target, err := database.CheckUserCanSendInChat(ctx, s.userID, req.ChatID)
	switch err {
	case nil:
	case database.ErrChatNotFound:
		respond(models.StateChatNotFound)
		return
	case database.ErrUserNotInChat:
		respond(models.StateUserNotInChat)
		return
	default:
		s.log.WithError(err).Error("authorize sender failed")
		respond(models.StateDatabaseError)
		return
	}

	var mentioned []models.UserID
	if req.Type == models.MsgMentionText {
		var content models.MentionTextContent
		if err := json.Unmarshal([]byte(req.SerializedContent), &content); err != nil {
			respond(models.StateContentError)
			return
		}
		mentioned = content.UserIDs
	}

	serialized, inChatID, timestamp, err := database.WriteMessage(ctx, req.Type, req.SerializedContent, req.ChatID, s.userID)
	if err != nil {
		s.log.WithError(err).Error("write message failed")
		respond(models.StateDatabaseError)
		return
	}

	for _, userID := range mentioned {
		if err := sendUserNotice(ctx, userID, models.UserNotice{
			State:     models.NoticeMentioned,
			ChatID:    req.ChatID,
			InChatID:  inChatID,
			Timestamp: timestamp,
		}); err != nil {
			s.log.WithError(err).Error("store mention notice failed")
			respond(models.StateSendNoticeError)
			return
		}
	}

	deliverMessage(ctx, target, req.ChatID, s.userID, serialized)

	s.reply(models.SrvSendMessageResponse, models.SendMessageResponse{
		State:    models.StateSuccess,
		ClientID: req.ClientID,
		ChatID:   req.ChatID,
		InChatID: &inChatID,
		Timestamp: &timestamp,
	})
}

// deliverMessage pushes a stored message to everyone it concerns except the
// sender. Large groups are fanned out on the worker pool.
func deliverMessage(ctx context.Context, target database.SendTarget, chatID models.ChatID, senderID models.UserID, serialized string) {
	cmd := models.ServerCommand{Command: models.SrvMessage, Data: json.RawMessage(serialized)}

	if !target.IsGroup {
		for _, userID := range target.Pair {
			if userID != senderID {
				services.Presence.Send(userID, cmd)
			}
		}
		return
	}

	fanOut := func() {
		members, err := database.ChatUserList(ctx, chatID)
		if err != nil {
			logrus.WithError(err).WithField("chatId", chatID).Error("resolve group members failed")
			return
		}
		services.Presence.SendManyExcept(members.Users, cmd, senderID)
	}
	if target.GroupSize > int64(config.Get().Protocol.WorkerSendMessagesMemberNumThreshold) {
		services.Workers.Submit(fanOut)
	} else {
		fanOut()
	}
}

// sendUserNotice persists a notice for replay and pushes it if the user is
// online.
func sendUserNotice(ctx context.Context, userID models.UserID, notice models.UserNotice) error {
	serialized, _ := json.Marshal(notice)
	if err := database.WriteUserNotice(ctx, userID, notice.Timestamp, string(serialized)); err != nil {
		return err
	}
	services.Presence.Send(userID, models.ServerCommand{
		Command: models.SrvNotice,
		Data:    json.RawMessage(serialized),
	})
	return nil
}

// announce writes a system Text message into a chat and delivers it. The
// content is the plain text, serialized the way clients serialize their own
// text bodies.
func announce(ctx context.Context, chatID models.ChatID, text string) {
	content, _ := json.Marshal(text)
	target, err := database.CheckUserCanSendInChat(ctx, systemSenderID, chatID)
	if err != nil {
		logrus.WithError(err).WithField("chatId", chatID).Error("announce target failed")
		return
	}
	serialized, _, _, err := database.WriteMessage(ctx, models.MsgText, string(content), chatID, systemSenderID)
	if err != nil {
		logrus.WithError(err).WithField("chatId", chatID).Error("announce write failed")
		return
	}
	deliverMessage(ctx, target, chatID, systemSenderID, serialized)
}

func (s *Session) handleRevokeMessage(ctx context.Context, data json.RawMessage) {
	var req models.RevokeMessageData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvRevokeMessageResponse, models.State(models.StateServerError))
		return
	}

	respond := func(state string) {
		s.reply(models.SrvRevokeMessageResponse, models.RevokeMessageResponse{
			ChatID:   req.ChatID,
			InChatID: req.InChatID,
			State:    state,
		})
	}

	serialized, found, err := database.MessageAt(ctx, req.ChatID, req.InChatID)
	if err != nil {
		s.log.WithError(err).Error("load message failed")
		respond(models.StateDatabaseError)
		return
	}
	if !found {
		respond(models.StateMessageNotExisted)
		return
	}
	var msg models.ChatMessage
	if err := json.Unmarshal([]byte(serialized), &msg); err != nil {
		s.log.WithError(err).Error("parse stored message failed")
		respond(models.StateDatabaseError)
		return
	}

	if state := s.authorizeRevoke(ctx, req, msg); state != "" {
		respond(state)
		return
	}

	if err := database.RevokeMessage(ctx, req.ChatID, req.InChatID, msg.SenderID, msg.Timestamp); err != nil {
		s.log.WithError(err).Error("revoke message failed")
		respond(models.StateDatabaseError)
		return
	}

	members, err := database.ChatUserList(ctx, req.ChatID)
	if err != nil {
		s.log.WithError(err).Error("resolve members failed")
		respond(models.StateDatabaseError)
		return
	}
	notice := models.UserNotice{
		State:     models.NoticeRevoked,
		ChatID:    req.ChatID,
		InChatID:  req.InChatID,
		Timestamp: models.Timestamp(time.Now().UnixMilli()),
	}
	for _, userID := range members.Users {
		if err := sendUserNotice(ctx, userID, notice); err != nil {
			s.log.WithError(err).Warn("store revoke notice failed")
		}
	}
	respond(models.StateSuccess)
}

// authorizeRevoke applies the method-specific permission rules, returning an
// error state or "" when allowed.
func (s *Session) authorizeRevoke(ctx context.Context, req models.RevokeMessageData, msg models.ChatMessage) string {
	switch req.Method {
	case models.RevokeBySender:
		if msg.SenderID != s.userID {
			return models.StatePermissionsDenied
		}
		expireMs := models.Timestamp(config.Get().User.SenderRevokeExpire) * 1000
		if models.Timestamp(time.Now().UnixMilli())-msg.Timestamp > expireMs {
			return models.StateTimeLimitExceeded
		}
		return ""

	case models.RevokeByGroupOwner:
		owner, err := database.ChatOwner(ctx, req.ChatID)
		if err != nil || owner != s.userID {
			return models.StatePermissionsDenied
		}
		return ""

	case models.RevokeByGroupAdmin:
		isAdmin, err := database.IsChatAdmin(ctx, s.userID, req.ChatID)
		if err != nil || !isAdmin {
			return models.StatePermissionsDenied
		}
		if msg.SenderID == s.userID {
			return ""
		}
		// Admins cannot revoke each other's messages.
		senderAdmin, err := database.IsChatAdmin(ctx, msg.SenderID, req.ChatID)
		if err != nil || senderAdmin {
			return models.StatePermissionsDenied
		}
		return ""
	}
	return models.StatePermissionsDenied
}

func (s *Session) handleGetMessages(ctx context.Context, data json.RawMessage) {
	var req models.GetMessagesData
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	inChat, err := database.UserInChat(ctx, s.userID, req.ChatID)
	if err != nil || !inChat {
		return
	}

	endID := req.EndID
	if endID == nil {
		last, err := database.LastMessageID(ctx, req.ChatID)
		if err != nil {
			s.log.WithError(err).Error("read last message id failed")
			return
		}
		endID = &last
	}
	maxWindow := models.MessageID(config.Get().Protocol.MaxMessagesNumInOneChatWhenGetting)
	startID := clampMessageWindow(req.StartID, *endID, maxWindow)

	msgs, err := database.MessagesInChat(ctx, req.ChatID, startID, endID)
	if err != nil {
		s.log.WithError(err).Error("read messages failed")
		return
	}
	s.reply(models.SrvMessages, rawList(msgs))
}

// clampMessageWindow raises startID so the [startID, endID] range holds at
// most max messages, keeping the newest end of the range.
func clampMessageWindow(startID, endID, max models.MessageID) models.MessageID {
	if startID < 1 {
		startID = 1
	}
	if endID >= startID && endID-startID+1 > max {
		startID = endID - max + 1
	}
	return startID
}

func (s *Session) handleSetAlreadyRead(ctx context.Context, data json.RawMessage) {
	var req models.SetAlreadyReadData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvSetAlreadyReadResponse, models.State(models.StateServerError))
		return
	}

	inChat, err := database.UserInChat(ctx, s.userID, req.ChatID)
	if err != nil {
		s.reply(models.SrvSetAlreadyReadResponse, models.State(models.StateDatabaseError))
		return
	}
	if !inChat {
		s.reply(models.SrvSetAlreadyReadResponse, models.State(models.StateNotInChat))
		return
	}
	if err := database.SetAlreadyRead(ctx, s.userID, req.ChatID, req.InChatID); err != nil {
		if err == database.ErrCursorAhead {
			s.reply(models.SrvSetAlreadyReadResponse, models.State(models.StateServerError))
			return
		}
		s.log.WithError(err).Error("set read cursor failed")
		s.reply(models.SrvSetAlreadyReadResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvSetAlreadyReadResponse, models.State(models.StateSuccess))

	// Private peers see each other's cursor move live.
	if req.Private {
		if pair, ok, err := database.PrivateChatPair(ctx, req.ChatID); err == nil && ok {
			peer := pair[0]
			if peer == s.userID {
				peer = pair[1]
			}
			services.Presence.Send(peer, models.ServerCommand{
				Command: models.SrvSetOppositeReadCursor,
				Data:    models.SetOppositeReadCursorData{ChatID: req.ChatID, InChatID: req.InChatID},
			})
		}
	}
}

// handleGetUserReadInGroup scans every member's cursor, so it runs on the
// worker pool.
func (s *Session) handleGetUserReadInGroup(ctx context.Context, data json.RawMessage) {
	var req models.GetUserReadInGroupData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvGetUserReadInGroupResponse, models.State(models.StateServerError))
		return
	}

	services.Workers.Submit(func() {
		inChat, err := database.UserInChat(ctx, s.userID, req.ChatID)
		if err != nil {
			s.reply(models.SrvGetUserReadInGroupResponse, models.State(models.StateDatabaseError))
			return
		}
		if !inChat {
			s.reply(models.SrvGetUserReadInGroupResponse, models.State(models.StateUserNotInChat))
			return
		}
		readers, err := database.GroupReadersAtLeast(ctx, req.ChatID, req.InChatID)
		switch err {
		case nil:
		case database.ErrNotGroupChat:
			s.reply(models.SrvGetUserReadInGroupResponse, models.State(models.StateNotGroupChat))
			return
		default:
			s.log.WithError(err).Error("scan read cursors failed")
			s.reply(models.SrvGetUserReadInGroupResponse, models.State(models.StateDatabaseError))
			return
		}
		s.reply(models.SrvGetUserReadInGroupResponse, models.UserReadInGroupSuccess{
			State:    models.StateSuccess,
			ChatID:   req.ChatID,
			InChatID: req.InChatID,
			UserIDs:  readers,
		})
	})
}

func (s *Session) handleGetUserReadInPrivate(ctx context.Context, data json.RawMessage) {
	var chatID models.ChatID
	if err := json.Unmarshal(data, &chatID); err != nil {
		s.reply(models.SrvGetUserReadInPrivateResponse, models.State(models.StateServerError))
		return
	}

	pair, ok, err := database.PrivateChatPair(ctx, chatID)
	if err != nil {
		s.log.WithError(err).Error("resolve private pair failed")
		s.reply(models.SrvGetUserReadInPrivateResponse, models.State(models.StateDatabaseError))
		return
	}
	if !ok {
		s.reply(models.SrvGetUserReadInPrivateResponse, models.State(models.StateNotPrivateChat))
		return
	}
	if pair[0] != s.userID && pair[1] != s.userID {
		s.reply(models.SrvGetUserReadInPrivateResponse, models.State(models.StateUserNotInChat))
		return
	}
	peer := pair[0]
	if peer == s.userID {
		peer = pair[1]
	}
	cursor, err := database.ReadCursor(ctx, peer, chatID)
	if err != nil {
		s.reply(models.SrvGetUserReadInPrivateResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvGetUserReadInPrivateResponse, models.UserReadInPrivateSuccess{
		State:    models.StateSuccess,
		ChatID:   chatID,
		InChatID: cursor,
	})
}

func rawList(serialized []string) []json.RawMessage {
	list := make([]json.RawMessage, 0, len(serialized))
	for _, s := range serialized {
		list = append(list, json.RawMessage(s))
	}
	return list
}
