package handlers

import (
	"context"
	"encoding/json"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/database"
	"github.com/dmail-project/dmail-backend/internal/models"
	"github.com/dmail-project/dmail-backend/internal/services"
)

// handlePull replays the user's state after (re)connecting: read cursors,
// the tail of every chat, pending requests, the stored settings document and
// missed notices. It walks a lot of keys, so the job runs on the worker pool
// and streams pushes through the session queue.
func (s *Session) handlePull(ctx context.Context, data json.RawMessage) {
	var req models.PullData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvPullResponse, models.State(models.StateServerError))
		return
	}

	services.Workers.Submit(func() {
		chats, err := database.UserChatList(ctx, s.userID)
		if err != nil {
			s.log.WithError(err).Error("pull chat list failed")
			s.reply(models.SrvPullResponse, models.State(models.StateDatabaseError))
			return
		}
		maxPerChat := config.Get().Protocol.MaxMessagesNumInOneChatWhenPulling
		msgs, err := database.ChatsLastMessages(ctx, chats, maxPerChat)
		if err != nil {
			s.log.WithError(err).Error("pull messages failed")
			s.reply(models.SrvPullResponse, models.State(models.StateDatabaseError))
			return
		}
		s.reply(models.SrvReadCursors, chats)
		s.reply(models.SrvMessages, rawList(msgs))

		reqs, err := database.UserRequests(ctx, s.userID, req.LastRequestID)
		if err != nil {
			s.log.WithError(err).Error("pull requests failed")
			s.reply(models.SrvPullResponse, models.State(models.StateDatabaseError))
			return
		}
		s.reply(models.SrvRequests, rawList(reqs))

		setting, ok, err := database.GetUserSetting(ctx, s.userID)
		if err != nil {
			s.log.WithError(err).Error("pull setting failed")
			s.reply(models.SrvPullResponse, models.State(models.StateDatabaseError))
			return
		}
		if ok {
			s.reply(models.SrvUserSetting, json.RawMessage(setting))
		}

		notices, err := database.UserNotices(ctx, s.userID, req.NoticeTimestamp)
		if err != nil {
			s.log.WithError(err).Error("pull notices failed")
			s.reply(models.SrvPullResponse, models.State(models.StateDatabaseError))
			return
		}
		s.reply(models.SrvNotices, rawList(notices))

		s.reply(models.SrvPullResponse, models.State(models.StateSuccess))
	})
}
