package handlers

import (
	"context"
	"encoding/json"

	"github.com/dmail-project/dmail-backend/internal/database"
	"github.com/dmail-project/dmail-backend/internal/models"
	"github.com/dmail-project/dmail-backend/internal/services"
)

func (s *Session) handleSendRequest(ctx context.Context, data json.RawMessage) {
	var req models.SendRequestData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvSendRequestResponse, models.State(models.StateServerError))
		return
	}

	replyErr := func(errType string) {
		wireType := req.Content.Type
		if wireType == models.ReqGroupInvitation {
			wireType = models.ReqErrGroupInvation
		}
		s.reply(models.SrvSendRequestResponse, models.SendRequestResponse{
			ClientID: req.ClientID,
			State: models.SendRequestState{
				Err: &models.RequestError{Type: wireType, ErrorType: errType},
			},
		})
	}
	replyPlain := func(state string) {
		s.reply(models.SrvSendRequestResponse, models.SendRequestResponse{
			ClientID: req.ClientID,
			State:    models.SendRequestState{Plain: state},
		})
	}

	var (
		errType string
		err     error
		handler models.RequestHandler
		onSend  func() error
	)
	switch req.Content.Type {
	case models.ReqMakeFriend:
		receiver := req.Content.ReceiverID
		errType, err = database.CheckMakeFriend(ctx, s.userID, receiver)
		handler = models.OneHandler(receiver)
		onSend = func() error { return database.WriteFriendRequestMark(ctx, s.userID, receiver) }

	case models.ReqJoinGroup:
		chatID := req.Content.ChatID
		errType, err = database.CheckJoinGroup(ctx, s.userID, chatID)
		if errType == "" {
			var admins []models.UserID
			admins, err = database.ChatAdmins(ctx, chatID)
			if err != nil {
				errType = models.ReqErrDatabaseError
			}
			handler = models.GroupHandler(admins)
		}
		onSend = func() error { return database.WriteJoinGroupMark(ctx, s.userID, chatID) }

	case models.ReqGroupInvitation:
		receiver := req.Content.ReceiverID
		chatID := req.Content.ChatID
		errType, err = database.CheckGroupInvitation(ctx, s.userID, receiver, chatID)
		handler = models.OneHandler(receiver)
		onSend = func() error { return database.WriteInvitationMark(ctx, s.userID, receiver, chatID) }

	case models.ReqInvitedJoinGroup:
		chatID := req.Content.ChatID
		errType, err = database.CheckInvitedJoinGroup(ctx, req.Content.InviterID, s.userID, chatID)
		if errType == "" {
			var admins []models.UserID
			admins, err = database.ChatAdmins(ctx, chatID)
			if err != nil {
				errType = models.ReqErrDatabaseError
			}
			handler = models.GroupHandler(admins)
		}
		onSend = func() error { return nil }

	default:
		replyPlain(models.StateServerError)
		return
	}

	if err != nil {
		s.log.WithError(err).Error("check request failed")
	}
	if errType != "" {
		replyErr(errType)
		return
	}
	if err != nil {
		replyPlain(models.StateDatabaseError)
		return
	}

	serialized, info, err := database.WriteRequest(ctx, s.userID, req, handler)
	if err != nil {
		s.log.WithError(err).Error("write request failed")
		replyPlain(models.StateDatabaseError)
		return
	}
	if err := onSend(); err != nil {
		s.log.WithError(err).Error("mark request failed")
		replyPlain(models.StateDatabaseError)
		return
	}

	push := models.ServerCommand{Command: models.SrvRequest, Data: json.RawMessage(serialized)}
	for _, userID := range handler.IDs() {
		services.Presence.Send(userID, push)
	}

	reqID := info.ReqID
	s.reply(models.SrvSendRequestResponse, models.SendRequestResponse{
		ReqID:    &reqID,
		ClientID: req.ClientID,
		State:    models.SendRequestState{Plain: models.StateSuccess},
	})
}

func (s *Session) handleSolveRequest(ctx context.Context, data json.RawMessage) {
	var req models.SolveRequestData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvSolveRequestResponse, models.State(models.StateServerError))
		return
	}

	respond := func(state string) {
		s.reply(models.SrvSolveRequestResponse, models.SolveRequestResponse{
			State: state,
			ReqID: req.ReqID,
		})
	}

	if req.Answer == models.ReqUnsolved {
		respond(models.StateAnswerUnsolved)
		return
	}

	userReq, found, err := database.GetRequest(ctx, req.ReqID)
	if err != nil {
		s.log.WithError(err).Error("load request failed")
		respond(models.StateDatabaseError)
		return
	}
	if !found {
		respond(models.StateRequestNotFound)
		return
	}
	if userReq.State != models.ReqUnsolved {
		respond(models.StateAlreadySolved)
		return
	}

	handler, err := s.resolveHandler(ctx, userReq.Info)
	if err != nil {
		s.log.WithError(err).Error("resolve handler failed")
		respond(models.StateDatabaseError)
		return
	}
	if !handler.IsHandler(s.userID) {
		respond(models.StateNotHandler)
		return
	}

	if err := database.SetRequestState(ctx, req.ReqID, req.Answer); err != nil {
		switch err {
		case database.ErrAlreadySolved:
			respond(models.StateAlreadySolved)
		case database.ErrAnswerUnsolved:
			respond(models.StateAnswerUnsolved)
		default:
			s.log.WithError(err).Error("store request state failed")
			respond(models.StateDatabaseError)
		}
		return
	}

	// A tombstoned sender makes the answer moot either way: tell the solver
	// and leave the request marks alone.
	exists, err := database.UserExists(ctx, userReq.Info.SenderID)
	if err != nil {
		s.log.WithError(err).Error("check sender failed")
		respond(models.StateDatabaseError)
		return
	}
	if !exists {
		s.reply(models.SrvRequestStateUpdate, models.RequestStateUpdated{ReqID: req.ReqID, State: req.Answer})
		s.requestMessage(req.ReqID, models.RequestMsgUserLogOff)
		respond(models.StateSuccess)
		return
	}

	if req.Answer == models.ReqApproved {
		joined, silent, err := s.alreadyInTargetGroup(ctx, userReq.Info)
		if err != nil {
			s.log.WithError(err).Error("check membership failed")
			respond(models.StateDatabaseError)
			return
		}
		if joined {
			if !silent {
				s.requestMessage(req.ReqID, models.RequestMsgUserAlreadyInChat)
			}
		} else {
			s.applyApproval(ctx, userReq.Info)
		}
	} else {
		s.clearRequestMarks(ctx, userReq.Info)
	}

	update := models.ServerCommand{
		Command: models.SrvRequestStateUpdate,
		Data:    models.RequestStateUpdated{ReqID: req.ReqID, State: req.Answer},
	}
	services.Presence.Send(userReq.Info.SenderID, update)
	services.Presence.SendMany(handler.IDs(), update)

	respond(models.StateSuccess)
}

// resolveHandler recomputes who may solve a request from its content.
func (s *Session) resolveHandler(ctx context.Context, info models.RequestInfo) (models.RequestHandler, error) {
	switch info.Content.Type {
	case models.ReqMakeFriend, models.ReqGroupInvitation:
		return models.OneHandler(info.Content.ReceiverID), nil
	case models.ReqJoinGroup, models.ReqInvitedJoinGroup:
		admins, err := database.ChatAdmins(ctx, info.Content.ChatID)
		if err != nil {
			return models.RequestHandler{}, err
		}
		return models.GroupHandler(admins), nil
	}
	return models.RequestHandler{}, database.ErrNotFound
}

func (s *Session) clearRequestMarks(ctx context.Context, info models.RequestInfo) {
	var err error
	switch info.Content.Type {
	case models.ReqMakeFriend:
		err = database.DeleteFriendRequestMark(ctx, info.SenderID, info.Content.ReceiverID)
	case models.ReqJoinGroup:
		err = database.DeleteJoinGroupMark(ctx, info.SenderID, info.Content.ChatID)
	case models.ReqGroupInvitation:
		err = database.DeleteInvitationMark(ctx, info.SenderID, info.Content.ReceiverID, info.Content.ChatID)
	}
	if err != nil {
		s.log.WithError(err).Warn("clear request mark failed")
	}
}

// alreadyInTargetGroup reports whether the user a group request would admit
// is in the chat already. A member's acceptance of a GroupInvitation is
// skipped silently in that case; the other group variants tell the solver.
func (s *Session) alreadyInTargetGroup(ctx context.Context, info models.RequestInfo) (joined, silent bool, err error) {
	switch info.Content.Type {
	case models.ReqJoinGroup, models.ReqInvitedJoinGroup:
		joined, err = database.UserInChat(ctx, info.SenderID, info.Content.ChatID)
	case models.ReqGroupInvitation:
		joined, err = database.UserInChat(ctx, info.Content.ReceiverID, info.Content.ChatID)
		silent = true
	}
	return joined, silent, err
}

// applyApproval runs the side effects of an approved request.
func (s *Session) applyApproval(ctx context.Context, info models.RequestInfo) {
	switch info.Content.Type {
	case models.ReqMakeFriend:
		s.approveMakeFriend(ctx, info)
	case models.ReqJoinGroup:
		s.approveJoinGroup(ctx, info)
	case models.ReqGroupInvitation:
		s.approveGroupInvitation(ctx, info)
	case models.ReqInvitedJoinGroup:
		s.approveInvitedJoinGroup(ctx, info)
	}
}

func (s *Session) requestMessage(reqID models.ReqID, msgType string) {
	s.reply(models.SrvRequestMessage, models.RequestMessageResponse{ReqID: reqID, Type: msgType})
}

func (s *Session) approveMakeFriend(ctx context.Context, info models.RequestInfo) {
	// MakeFriends overwrites the in-flight mark with the real chat id.
	chatID, err := database.MakeFriends(ctx, info.SenderID, info.Content.ReceiverID)
	if err != nil {
		s.log.WithError(err).Error("make friends failed")
		return
	}
	announce(ctx, chatID, models.AdminMsgFriendMade)
	s.pushChatInfo(ctx, chatID, info.SenderID, info.Content.ReceiverID)
}

func (s *Session) pushChatInfo(ctx context.Context, chatID models.ChatID, userIDs ...models.UserID) {
	serialized, ok, err := database.GetChatInfoSerialized(ctx, chatID)
	if err != nil || !ok {
		s.log.WithError(err).Warn("load chat info for push failed")
		return
	}
	cmd := models.ServerCommand{Command: models.SrvChat, Data: json.RawMessage(serialized)}
	services.Presence.SendMany(userIDs, cmd)
}

// addApprovedMember adds a user to a group after a successful request,
// announces it and pushes membership updates. The announcement text is
// supplied by the caller since it differs between joins and invitations.
func (s *Session) addApprovedMember(ctx context.Context, chatID models.ChatID, userID models.UserID, text string) {
	if err := database.AddUserToGroupChat(ctx, chatID, userID); err != nil {
		s.log.WithError(err).Error("add group member failed")
		return
	}
	announce(ctx, chatID, text)
	s.notifyMemberChange(ctx, chatID, models.AddMember, userID)
	s.pushChatInfo(ctx, chatID, userID)
}

func (s *Session) approveJoinGroup(ctx context.Context, info models.RequestInfo) {
	chatID := info.Content.ChatID
	if err := database.DeleteJoinGroupMark(ctx, info.SenderID, chatID); err != nil {
		s.log.WithError(err).Warn("clear pre-join mark failed")
	}
	userInfo, err := database.GetUserInfo(ctx, info.SenderID)
	if err != nil {
		s.log.WithError(err).Error("load user info failed")
		return
	}
	s.addApprovedMember(ctx, chatID, info.SenderID, models.AdminMsgUserJoined(userInfo.UserName))
}

// approveGroupInvitation runs when the invited user accepts. An admin's
// invitation admits directly; a plain member's acceptance turns into a
// chained request the group admins must approve.
func (s *Session) approveGroupInvitation(ctx context.Context, info models.RequestInfo) {
	inviter := info.SenderID
	invited := info.Content.ReceiverID
	chatID := info.Content.ChatID

	if err := database.DeleteInvitationMark(ctx, inviter, invited, chatID); err != nil {
		s.log.WithError(err).Warn("clear invitation mark failed")
	}

	inviterAdmin, err := database.IsChatAdmin(ctx, inviter, chatID)
	if err != nil {
		s.log.WithError(err).Error("check inviter failed")
		return
	}
	if inviterAdmin {
		inviterInfo, err := database.GetUserInfo(ctx, inviter)
		if err != nil {
			return
		}
		invitedInfo, err := database.GetUserInfo(ctx, invited)
		if err != nil {
			return
		}
		s.addApprovedMember(ctx, chatID, invited,
			models.AdminMsgUserInvited(inviterInfo.UserName, invitedInfo.UserName))
		return
	}

	admins, err := database.ChatAdmins(ctx, chatID)
	if err != nil {
		s.log.WithError(err).Error("load admins failed")
		return
	}
	chained := models.SendRequestData{
		Message: info.Message,
		Content: models.RequestContent{
			Type:      models.ReqInvitedJoinGroup,
			InviterID: inviter,
			ChatID:    chatID,
		},
	}
	serialized, _, err := database.WriteRequest(ctx, invited, chained, models.GroupHandler(admins))
	if err != nil {
		s.log.WithError(err).Error("write chained request failed")
		return
	}
	push := models.ServerCommand{Command: models.SrvRequest, Data: json.RawMessage(serialized)}
	services.Presence.SendMany(admins, push)
}

func (s *Session) approveInvitedJoinGroup(ctx context.Context, info models.RequestInfo) {
	invited := info.SenderID
	chatID := info.Content.ChatID

	inviterInfo, err := database.GetUserInfo(ctx, info.Content.InviterID)
	if err != nil {
		return
	}
	invitedInfo, err := database.GetUserInfo(ctx, invited)
	if err != nil {
		return
	}
	s.addApprovedMember(ctx, chatID, invited,
		models.AdminMsgUserInvited(inviterInfo.UserName, invitedInfo.UserName))
}
