package handlers

import (
	"context"
	"encoding/json"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/database"
	"github.com/dmail-project/dmail-backend/internal/models"
	"github.com/dmail-project/dmail-backend/internal/services"
)

func (s *Session) handleCreateGroupChat(ctx context.Context, data json.RawMessage) {
	var req models.CreateGroupChatData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvCreateGroupChatResponse, models.State(models.StateServerError))
		return
	}
	if req.Name == "" || len(req.Name) > config.Get().User.MaxUserNameLength {
		s.reply(models.SrvCreateGroupChatResponse, models.State(models.StateChatNameFormatError))
		return
	}

	chatID, err := database.CreateGroupChat(ctx, s.userID, req.Name, req.AvaterHash)
	if err != nil {
		s.log.WithError(err).Error("create group failed")
		s.reply(models.SrvCreateGroupChatResponse, models.State(models.StateDatabaseError))
		return
	}
	s.log.WithField("chatId", chatID).Info("group created")
	s.reply(models.SrvCreateGroupChatResponse, models.NewCreateGroupChatSuccess(chatID))
	announce(ctx, chatID, models.AdminMsgGroupCreated)
}

func (s *Session) handleQuitGroupChat(ctx context.Context, data json.RawMessage) {
	var chatID models.ChatID
	if err := json.Unmarshal(data, &chatID); err != nil {
		s.reply(models.SrvQuitGroupChatResponse, models.State(models.StateServerError))
		return
	}

	owner, err := database.ChatOwner(ctx, chatID)
	switch err {
	case nil:
	case database.ErrNotGroupChat:
		s.reply(models.SrvQuitGroupChatResponse, models.State(models.StateNotGroupChat))
		return
	default:
		s.reply(models.SrvQuitGroupChatResponse, models.State(models.StateDatabaseError))
		return
	}
	// The owner must transfer ownership before leaving.
	if owner == s.userID {
		s.reply(models.SrvQuitGroupChatResponse, models.State(models.StateNoPermission))
		return
	}

	info, err := database.GetUserInfo(ctx, s.userID)
	if err != nil {
		s.reply(models.SrvQuitGroupChatResponse, models.State(models.StateDatabaseError))
		return
	}

	if err := database.QuitGroupChat(ctx, s.userID, chatID); err != nil {
		if err == database.ErrUserNotInChat {
			s.reply(models.SrvQuitGroupChatResponse, models.State(models.StateUserNotInChat))
			return
		}
		s.log.WithError(err).Error("quit group failed")
		s.reply(models.SrvQuitGroupChatResponse, models.State(models.StateDatabaseError))
		return
	}

	s.reply(models.SrvQuitGroupChatResponse, models.QuitGroupChatSuccess{
		State:  models.StateSuccess,
		ChatID: chatID,
	})
	announce(ctx, chatID, models.AdminMsgUserQuit(info.UserName))
	s.notifyMemberChange(ctx, chatID, models.DeleteMember, s.userID)
}

func (s *Session) notifyMemberChange(ctx context.Context, chatID models.ChatID, change models.MemberChangeType, userID models.UserID) {
	members, err := database.ChatUserList(ctx, chatID)
	if err != nil {
		s.log.WithError(err).Warn("resolve members for change push failed")
		return
	}
	services.Presence.SendMany(members.Users, models.ServerCommand{
		Command: models.SrvGroupMemberChange,
		Data:    models.MemberChangeData{Type: change, ChatID: chatID, UserID: userID},
	})
}

func (s *Session) handleRemoveGroupMember(ctx context.Context, data json.RawMessage) {
	var req models.RemoveGroupMemberData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvRemoveGroupMemberResponse, models.State(models.StateServerError))
		return
	}
	if req.UserID == s.userID {
		s.reply(models.SrvRemoveGroupMemberResponse, models.State(models.StateSameUser))
		return
	}

	owner, err := database.ChatOwner(ctx, req.ChatID)
	switch err {
	case nil:
	case database.ErrNotGroupChat:
		s.reply(models.SrvRemoveGroupMemberResponse, models.State(models.StateNotGroupChat))
		return
	default:
		s.reply(models.SrvRemoveGroupMemberResponse, models.State(models.StateDatabaseError))
		return
	}

	// The owner may remove anyone; an admin only plain members.
	if owner != s.userID {
		callerAdmin, err := database.IsChatAdmin(ctx, s.userID, req.ChatID)
		if err != nil || !callerAdmin {
			s.reply(models.SrvRemoveGroupMemberResponse, models.State(models.StateNoPermission))
			return
		}
		targetAdmin, err := database.IsChatAdmin(ctx, req.UserID, req.ChatID)
		if err != nil || targetAdmin || req.UserID == owner {
			s.reply(models.SrvRemoveGroupMemberResponse, models.State(models.StateNoPermission))
			return
		}
	}

	targetInfo, err := database.GetUserInfo(ctx, req.UserID)
	if err != nil {
		s.reply(models.SrvRemoveGroupMemberResponse, models.State(models.StateDatabaseError))
		return
	}
	callerInfo, err := database.GetUserInfo(ctx, s.userID)
	if err != nil {
		s.reply(models.SrvRemoveGroupMemberResponse, models.State(models.StateDatabaseError))
		return
	}

	if err := database.QuitGroupChat(ctx, req.UserID, req.ChatID); err != nil {
		if err == database.ErrUserNotInChat {
			s.reply(models.SrvRemoveGroupMemberResponse, models.State(models.StateUserNotInChat))
			return
		}
		s.log.WithError(err).Error("remove member failed")
		s.reply(models.SrvRemoveGroupMemberResponse, models.State(models.StateDatabaseError))
		return
	}

	s.reply(models.SrvRemoveGroupMemberResponse, models.NewChatUserSuccess(req.ChatID, req.UserID))
	services.Presence.Send(req.UserID, models.ServerCommand{
		Command: models.SrvDeleteChat,
		Data:    req.ChatID,
	})
	announce(ctx, req.ChatID, models.AdminMsgUserRemoved(targetInfo.UserName, callerInfo.UserName))
	s.notifyMemberChange(ctx, req.ChatID, models.DeleteMember, req.UserID)
}

// requireOwner answers with the right error state and reports false unless
// the caller owns the group.
func (s *Session) requireOwner(ctx context.Context, responseTag string, chatID models.ChatID) bool {
	owner, err := database.ChatOwner(ctx, chatID)
	switch err {
	case nil:
	case database.ErrNotGroupChat:
		s.reply(responseTag, models.State(models.StateNotGroupChat))
		return false
	default:
		s.reply(responseTag, models.State(models.StateDatabaseError))
		return false
	}
	if owner != s.userID {
		s.reply(responseTag, models.State(models.StateNotOwner))
		return false
	}
	return true
}

func (s *Session) handleSetGroupAdmin(ctx context.Context, data json.RawMessage) {
	var req models.SetGroupAdminData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvSetGroupAdminResponse, models.State(models.StateServerError))
		return
	}
	if !s.requireOwner(ctx, models.SrvSetGroupAdminResponse, req.ChatID) {
		return
	}

	inChat, err := database.UserInChat(ctx, req.UserID, req.ChatID)
	if err != nil || !inChat {
		s.reply(models.SrvSetGroupAdminResponse, models.State(models.StateUserNotInChat))
		return
	}
	if err := database.SetChatAdmin(ctx, req.UserID, req.ChatID); err != nil {
		if err == database.ErrNotFound {
			s.reply(models.SrvSetGroupAdminResponse, models.State(models.StateAlreadyAdmin))
			return
		}
		s.reply(models.SrvSetGroupAdminResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvSetGroupAdminResponse, models.NewChatUserSuccess(req.ChatID, req.UserID))
}

func (s *Session) handleUnsetGroupAdmin(ctx context.Context, data json.RawMessage) {
	var req models.UnsetGroupAdminData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvUnsetGroupAdminResponse, models.State(models.StateServerError))
		return
	}
	if req.UserID == s.userID {
		s.reply(models.SrvUnsetGroupAdminResponse, models.State(models.StateSameUser))
		return
	}
	if !s.requireOwner(ctx, models.SrvUnsetGroupAdminResponse, req.ChatID) {
		return
	}

	if err := database.UnsetChatAdmin(ctx, req.UserID, req.ChatID); err != nil {
		if err == database.ErrNotFound {
			s.reply(models.SrvUnsetGroupAdminResponse, models.State(models.StateNotAdmin))
			return
		}
		s.reply(models.SrvUnsetGroupAdminResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvUnsetGroupAdminResponse, models.NewChatUserSuccess(req.ChatID, req.UserID))
}

func (s *Session) handleGroupOwnerTransfer(ctx context.Context, data json.RawMessage) {
	var req models.GroupOwnerTransferData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvGroupOwnerTransferResponse, models.State(models.StateServerError))
		return
	}
	if !s.requireOwner(ctx, models.SrvGroupOwnerTransferResponse, req.ChatID) {
		return
	}

	inChat, err := database.UserInChat(ctx, req.UserID, req.ChatID)
	if err != nil || !inChat {
		s.reply(models.SrvGroupOwnerTransferResponse, models.State(models.StateUserNotInChat))
		return
	}
	if err := database.TransferChatOwner(ctx, req.UserID, req.ChatID); err != nil {
		s.log.WithError(err).Error("owner transfer failed")
		s.reply(models.SrvGroupOwnerTransferResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvGroupOwnerTransferResponse, models.NewChatUserSuccess(req.ChatID, req.UserID))
}

func (s *Session) handleUpdateGroupInfo(ctx context.Context, data json.RawMessage) {
	var req models.UpdateGroupData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvUpdateGroupInfoResponse, models.State(models.StateServerError))
		return
	}

	isAdmin, err := database.IsChatAdmin(ctx, s.userID, req.ChatID)
	if err != nil {
		s.reply(models.SrvUpdateGroupInfoResponse, models.State(models.StateDatabaseError))
		return
	}
	if !isAdmin {
		s.reply(models.SrvUpdateGroupInfoResponse, models.State(models.StateNoPermission))
		return
	}

	switch req.Content.Type {
	case models.UpdateGroupName:
		if req.Content.NewName == "" || len(req.Content.NewName) > config.Get().User.MaxUserNameLength {
			s.reply(models.SrvUpdateGroupInfoResponse, models.State(models.StateGroupNameFormatError))
			return
		}
	case models.UpdateGroupAvater:
		if !avaterHashPattern.MatchString(req.Content.NewAvater) {
			s.reply(models.SrvUpdateGroupInfoResponse, models.State(models.StateAvaterFormatError))
			return
		}
	default:
		s.reply(models.SrvUpdateGroupInfoResponse, models.State(models.StateServerError))
		return
	}

	if err := database.UpdateGroupInfo(ctx, req.ChatID, req.Content); err != nil {
		s.log.WithError(err).Error("update group info failed")
		s.reply(models.SrvUpdateGroupInfoResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvUpdateGroupInfoResponse, models.State(models.StateSuccess))
}

func (s *Session) handleSendGroupNotice(ctx context.Context, data json.RawMessage) {
	var req models.SendGroupNoticeData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvGroupNoticeResponse, models.State(models.StateServerError))
		return
	}

	isAdmin, err := database.IsChatAdmin(ctx, s.userID, req.ChatID)
	if err != nil {
		s.reply(models.SrvGroupNoticeResponse, models.State(models.StateDatabaseError))
		return
	}
	if !isAdmin {
		s.reply(models.SrvGroupNoticeResponse, models.State(models.StateNoPermission))
		return
	}

	if len(req.Notice) > config.Get().Safety.MaxNoticeLength {
		s.reply(models.SrvGroupNoticeResponse, models.SendGroupNoticeLengthExceeded{
			State:    models.StateLenthLimitExceeded,
			ClientID: req.ClientID,
			ChatID:   req.ChatID,
		})
		return
	}

	noticeID, timestamp, err := database.AddGroupNotice(ctx, s.userID, req.ChatID, req.Notice)
	if err != nil {
		s.log.WithError(err).Error("write group notice failed")
		s.reply(models.SrvGroupNoticeResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvGroupNoticeResponse, models.SendGroupNoticeSuccess{
		State:     models.StateSuccess,
		ChatID:    req.ChatID,
		ClientID:  req.ClientID,
		NoticeID:  noticeID,
		Timestamp: timestamp,
	})
}

func (s *Session) handlePullGroupNotice(ctx context.Context, data json.RawMessage) {
	var req models.PullGroupNoticeData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvPullGroupNoticeResponse, models.State(models.StateServerError))
		return
	}

	inChat, err := database.UserInChat(ctx, s.userID, req.ChatID)
	if err != nil {
		s.reply(models.SrvPullGroupNoticeResponse, models.State(models.StateDatabaseError))
		return
	}
	if !inChat {
		s.reply(models.SrvPullGroupNoticeResponse, models.State(models.StateUserNotInChat))
		return
	}

	notices, err := database.GroupNotices(ctx, req.ChatID, req.LastNoticeID)
	if err != nil {
		s.log.WithError(err).Error("read group notices failed")
		s.reply(models.SrvPullGroupNoticeResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvPullGroupNoticeResponse, models.PullGroupNoticeSuccess{
		State:       models.StateSuccess,
		ChatID:      req.ChatID,
		GroupNotice: notices,
	})
}

func (s *Session) handleUnfriend(ctx context.Context, data json.RawMessage) {
	var friendID models.UserID
	if err := json.Unmarshal(data, &friendID); err != nil {
		s.reply(models.SrvUnfriendResponse, models.State(models.StateServerError))
		return
	}

	chatID, err := database.Unfriend(ctx, s.userID, friendID)
	switch err {
	case nil:
	case database.ErrNotFriend:
		s.reply(models.SrvUnfriendResponse, models.State(models.StateNotFriend))
		return
	default:
		s.log.WithError(err).Error("unfriend failed")
		s.reply(models.SrvUnfriendResponse, models.State(models.StateDatabaseError))
		return
	}

	s.reply(models.SrvUnfriendResponse, models.UnfriendSuccess{
		State:  models.StateSuccess,
		ChatID: chatID,
	})
	services.Presence.Send(friendID, models.ServerCommand{
		Command: models.SrvDeleteChat,
		Data:    chatID,
	})
}
