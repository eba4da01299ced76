package handlers

import (
	"context"
	"encoding/json"

	"github.com/dmail-project/dmail-backend/internal/database"
	"github.com/dmail-project/dmail-backend/internal/models"
	"github.com/dmail-project/dmail-backend/internal/services"
)

// WebRTC signalling. The server only relays SDP and ICE blobs between
// friends; no call state is kept. In every forwarded payload friendId is
// rewritten to point back at the sender so the peer can answer.

func (s *Session) handleMediaCall(ctx context.Context, data json.RawMessage) {
	var req models.MediaCallData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvMediaCallResponse, models.StateServerError)
		return
	}

	chatID, found, err := database.ChatIDByFriends(ctx, s.userID, req.FriendID)
	if err != nil {
		s.log.WithError(err).Error("check friendship failed")
		s.reply(models.SrvMediaCallResponse, models.StateDatabaseError)
		return
	}
	if !found || chatID == 0 {
		s.reply(models.SrvMediaCallResponse, models.StateNotFriend)
		return
	}

	services.Presence.Send(req.FriendID, models.ServerCommand{
		Command: models.SrvMediaCallOffer,
		Data: models.MediaCallData{
			FriendID:        s.userID,
			CallType:        req.CallType,
			SerializedOffer: req.SerializedOffer,
		},
	})
	s.reply(models.SrvMediaCallResponse, models.StateSuccess)
}

func (s *Session) handleMediaCallAnswer(data json.RawMessage) {
	var req models.MediaCallAnswerData
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	peer := req.FriendID
	req.FriendID = s.userID
	services.Presence.Send(peer, models.ServerCommand{
		Command: models.SrvMediaCallAnswer,
		Data:    req,
	})
}

func (s *Session) handleMediaIceCandidate(data json.RawMessage) {
	var req models.MediaIceCandidateData
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	peer := req.FriendID
	req.FriendID = s.userID
	services.Presence.Send(peer, models.ServerCommand{
		Command: models.SrvMediaIceCandidate,
		Data:    req,
	})
}

func (s *Session) handleMediaCallStop(data json.RawMessage) {
	var req models.MediaCallStopData
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	peer := req.FriendID
	req.FriendID = s.userID
	services.Presence.Send(peer, models.ServerCommand{
		Command: models.SrvMediaCallStop,
		Data:    req,
	})
}
