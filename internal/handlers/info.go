package handlers

import (
	"context"
	"encoding/json"

	"github.com/dmail-project/dmail-backend/internal/database"
	"github.com/dmail-project/dmail-backend/internal/models"
)

// Lookup commands. Several take a bare scalar as data.

func (s *Session) handleGetUserInfo(ctx context.Context, data json.RawMessage) {
	var userID models.UserID
	if err := json.Unmarshal(data, &userID); err != nil {
		s.reply(models.SrvGetUserInfoResponse, models.State(models.StateServerError))
		return
	}

	info, err := database.GetUserInfo(ctx, userID)
	switch err {
	case nil:
		s.reply(models.SrvGetUserInfoResponse, models.NewGetUserInfoSuccess(info))
	case database.ErrNotFound:
		s.reply(models.SrvGetUserInfoResponse, models.State(models.StateUserNotFound))
	default:
		s.log.WithError(err).Error("get user info failed")
		s.reply(models.SrvGetUserInfoResponse, models.State(models.StateDatabaseError))
	}
}

// handleGetChatInfo answers with a Chat push carrying the stored info
// document, or a bare NotFound / DatabaseError command.
func (s *Session) handleGetChatInfo(ctx context.Context, data json.RawMessage) {
	var chatID models.ChatID
	if err := json.Unmarshal(data, &chatID); err != nil {
		s.reply(models.SrvNotFound, nil)
		return
	}

	serialized, ok, err := database.GetChatInfoSerialized(ctx, chatID)
	if err != nil {
		s.log.WithError(err).Error("get chat info failed")
		s.reply(models.SrvDatabaseError, nil)
		return
	}
	if !ok {
		s.reply(models.SrvNotFound, nil)
		return
	}
	s.reply(models.SrvChat, json.RawMessage(serialized))
}

func (s *Session) handleGetGroupUsers(ctx context.Context, data json.RawMessage) {
	var chatID models.ChatID
	if err := json.Unmarshal(data, &chatID); err != nil {
		s.reply(models.SrvGetGroupUsersResponse, models.State(models.StateServerError))
		return
	}

	inChat, err := database.UserInChat(ctx, s.userID, chatID)
	if err != nil {
		s.reply(models.SrvGetGroupUsersResponse, models.State(models.StateDatabaseError))
		return
	}
	if !inChat {
		s.reply(models.SrvGetGroupUsersResponse, models.State(models.StateUserNotInChat))
		return
	}

	members, err := database.ChatUserList(ctx, chatID)
	if err != nil {
		s.log.WithError(err).Error("get group users failed")
		s.reply(models.SrvGetGroupUsersResponse, models.State(models.StateDatabaseError))
		return
	}
	if !members.IsGroup {
		s.reply(models.SrvGetGroupUsersResponse, models.State(models.StateNotGroupChat))
		return
	}
	s.reply(models.SrvGetGroupUsersResponse, models.NewGroupUsersSuccess(chatID, members.Users))
}

func (s *Session) handleGetGroupOwner(ctx context.Context, data json.RawMessage) {
	var chatID models.ChatID
	if err := json.Unmarshal(data, &chatID); err != nil {
		s.reply(models.SrvGetGroupOwnerResponse, models.State(models.StateServerError))
		return
	}

	owner, err := database.ChatOwner(ctx, chatID)
	switch err {
	case nil:
		s.reply(models.SrvGetGroupOwnerResponse, models.NewChatUserSuccess(chatID, owner))
	case database.ErrNotGroupChat:
		s.reply(models.SrvGetGroupOwnerResponse, models.State(models.StateServerError))
	default:
		s.log.WithError(err).Error("get group owner failed")
		s.reply(models.SrvGetGroupOwnerResponse, models.State(models.StateServerError))
	}
}

func (s *Session) handleGetGroupAdmin(ctx context.Context, data json.RawMessage) {
	var chatID models.ChatID
	if err := json.Unmarshal(data, &chatID); err != nil {
		s.reply(models.SrvGetGroupAdminResponse, models.State(models.StateServerError))
		return
	}

	admins, err := database.ChatAdmins(ctx, chatID)
	switch err {
	case nil:
		s.reply(models.SrvGetGroupAdminResponse, models.NewGroupUsersSuccess(chatID, admins))
	case database.ErrNotGroupChat:
		s.reply(models.SrvGetGroupAdminResponse, models.State(models.StateDatabaseError))
	default:
		s.log.WithError(err).Error("get group admins failed")
		s.reply(models.SrvGetGroupAdminResponse, models.State(models.StateDatabaseError))
	}
}

func (s *Session) handleGetUserID(ctx context.Context, data json.RawMessage) {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		s.reply(models.SrvGetUserIDResponse, models.State(models.StateServerError))
		return
	}

	ids, ok, err := database.UserIDsByName(ctx, name)
	if err != nil {
		s.log.WithError(err).Error("resolve name failed")
		s.reply(models.SrvGetUserIDResponse, models.State(models.StateDatabaseError))
		return
	}
	if !ok || len(ids) == 0 {
		s.reply(models.SrvGetUserIDResponse, models.State(models.StateNotFound))
		return
	}
	s.reply(models.SrvGetUserIDResponse, models.GetUserIDSuccess{
		State:   models.StateSuccess,
		UserIDs: ids,
	})
}
