package handlers

import (
	"context"
	"encoding/json"
	"net/mail"
	"regexp"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/database"
	"github.com/dmail-project/dmail-backend/internal/models"
	"github.com/dmail-project/dmail-backend/internal/services"
)

var avaterHashPattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

func (s *Session) handleRegister(ctx context.Context, data json.RawMessage) {
	var req models.RegisterData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvRegisterResponse, models.State(models.StateServerError))
		return
	}

	if len(req.UserName) > config.Get().User.MaxUserNameLength {
		s.reply(models.SrvRegisterResponse, models.State(models.StateUserNameFormatError))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		s.reply(models.SrvRegisterResponse, models.State(models.StateEmailInvalid))
		return
	}
	if !config.PasswordRegex().MatchString(req.Password) {
		s.reply(models.SrvRegisterResponse, models.State(models.StatePasswordFormatError))
		return
	}
	if !services.Email.CheckAndConsume(req.Email, req.EmailCode) {
		s.reply(models.SrvRegisterResponse, models.State(models.StateEmailCodeError))
		return
	}

	userID, err := database.RegisterUser(ctx, req.UserName, req.Password, req.Email)
	switch err {
	case nil:
		s.log.WithField("userId", userID).Info("user registered")
		s.reply(models.SrvRegisterResponse, models.NewRegisterSuccess(userID))
	case database.ErrEmailRegistered:
		s.reply(models.SrvRegisterResponse, models.State(models.StateEmailRegistered))
	default:
		s.log.WithError(err).Error("register failed")
		s.reply(models.SrvRegisterResponse, models.State(models.StateDatabaseError))
	}
}

func (s *Session) handleLogin(ctx context.Context, data json.RawMessage) {
	if s.state == stateLogged {
		s.reply(models.SrvLoginResponse, models.State(models.StateUserLogged))
		return
	}

	var req models.LoginData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvLoginResponse, models.State(models.StateServerError))
		return
	}

	var (
		userID models.UserID
		err    error
	)
	switch {
	case req.EmailCode != nil:
		var ok bool
		userID, ok, err = database.UserIDByEmail(ctx, req.Email)
		if err == nil && !ok {
			err = database.ErrUserNotFound
		}
		if err == nil && !services.Email.CheckAndConsume(req.Email, *req.EmailCode) {
			s.reply(models.SrvLoginResponse, models.State(models.StateEmailCodeError))
			return
		}
	case req.Password != nil:
		userID, err = database.LoginByPassword(ctx, req.Email, *req.Password)
	case req.Token != nil:
		userID, err = database.LoginByToken(ctx, req.Email, *req.Token)
	default:
		s.reply(models.SrvLoginResponse, models.State(models.StateServerError))
		return
	}

	switch err {
	case nil:
	case database.ErrUserNotFound:
		s.reply(models.SrvLoginResponse, models.State(models.StateUserNotFound))
		return
	case database.ErrPasswordError:
		s.reply(models.SrvLoginResponse, models.State(models.StatePasswordError))
		return
	case database.ErrTokenError:
		s.reply(models.SrvLoginResponse, models.State(models.StateTokenError))
		return
	case database.ErrTokenExpired:
		s.reply(models.SrvLoginResponse, models.State(models.StateTokenExpired))
		return
	default:
		s.log.WithError(err).Error("login failed")
		s.reply(models.SrvLoginResponse, models.State(models.StateDatabaseError))
		return
	}

	// One live session per account.
	if services.Presence.IsOnline(userID) {
		s.reply(models.SrvLoginResponse, models.State(models.StateUserLogged))
		return
	}

	s.userID = userID
	s.state = stateLogged
	services.Presence.Register(userID, s)
	s.log = s.log.WithField("userId", userID)
	s.log.Info("user logged in")
	s.reply(models.SrvLoginResponse, models.NewLoginSuccess(userID))
}

func (s *Session) handleApplyForToken(ctx context.Context) {
	token, err := database.ApplyForToken(ctx, s.userID)
	if err != nil {
		s.log.WithError(err).Error("apply for token failed")
		s.reply(models.SrvApplyForTokenResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvApplyForTokenResponse, models.NewApplyForTokenSuccess(token))
}

func (s *Session) handleUpdateUserInfo(ctx context.Context, data json.RawMessage) {
	var req models.UpdateUserData
	if err := json.Unmarshal(data, &req); err != nil {
		s.reply(models.SrvUpdateUserInfoResponse, models.State(models.StateServerError))
		return
	}

	switch req.Type {
	case models.UpdateUserName:
		if req.NewName == "" || len(req.NewName) > config.Get().User.MaxUserNameLength {
			s.reply(models.SrvUpdateUserInfoResponse, models.State(models.StateUserNameFormatError))
			return
		}
		s.replyUpdateUser(database.UpdateUserName(ctx, s.userID, req.NewName))

	case models.UpdateUserPassword:
		if !config.PasswordRegex().MatchString(req.NewPassword) {
			s.reply(models.SrvUpdateUserInfoResponse, models.State(models.StatePasswordFormatError))
			return
		}
		email, err := database.UserEmail(ctx, s.userID)
		if err != nil {
			s.reply(models.SrvUpdateUserInfoResponse, models.State(models.StateDatabaseError))
			return
		}
		if req.EmailCode == nil || !services.Email.CheckAndConsume(email, *req.EmailCode) {
			s.reply(models.SrvUpdateUserInfoResponse, models.State(models.StateEmailCodeError))
			return
		}
		s.replyUpdateUser(database.UpdateUserPassword(ctx, s.userID, req.NewPassword))

	case models.UpdateUserAvater:
		if !avaterHashPattern.MatchString(req.NewHash) {
			s.reply(models.SrvUpdateUserInfoResponse, models.State(models.StateAvaterHashFormatError))
			return
		}
		s.replyUpdateUser(database.UpdateUserAvater(ctx, s.userID, req.NewHash))

	default:
		s.reply(models.SrvUpdateUserInfoResponse, models.State(models.StateServerError))
	}
}

func (s *Session) replyUpdateUser(err error) {
	if err != nil {
		s.log.WithError(err).Error("update user info failed")
		s.reply(models.SrvUpdateUserInfoResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvUpdateUserInfoResponse, models.State(models.StateSuccess))
}

// handleSetUserSetting stores the client's settings document verbatim; the
// server never interprets it.
func (s *Session) handleSetUserSetting(ctx context.Context, data json.RawMessage) {
	if err := database.SetUserSetting(ctx, s.userID, string(data)); err != nil {
		s.log.WithError(err).Error("set user setting failed")
		s.reply(models.SrvSetUserSettingResponse, models.State(models.StateDatabaseError))
		return
	}
	s.reply(models.SrvSetUserSettingResponse, models.State(models.StateSuccess))
}

// handleLogOff verifies the email code, tombstones the account, notifies
// every former friend and then ends the session. It returns false when the
// session should terminate.
func (s *Session) handleLogOff(ctx context.Context, data json.RawMessage) bool {
	var code models.EmailCodeValue
	if err := json.Unmarshal(data, &code); err != nil {
		s.reply(models.SrvLogOffResponse, models.State(models.StateServerError))
		return true
	}
	email, err := database.UserEmail(ctx, s.userID)
	if err != nil {
		s.log.WithError(err).Error("log off failed")
		s.reply(models.SrvLogOffResponse, models.State(models.StateDatabaseError))
		return true
	}
	if !services.Email.CheckAndConsume(email, code) {
		s.reply(models.SrvLogOffResponse, models.State(models.StateEmailCodeError))
		return true
	}

	friends, err := database.LogOffUser(ctx, s.userID)
	switch err {
	case nil:
	case database.ErrNoPermission:
		s.reply(models.SrvLogOffResponse, models.State(models.StateNoPermission))
		return true
	case database.ErrUserNotFound:
		s.reply(models.SrvLogOffResponse, models.State(models.StateUserNotFound))
		return true
	default:
		s.log.WithError(err).Error("log off failed")
		s.reply(models.SrvLogOffResponse, models.State(models.StateDatabaseError))
		return true
	}

	for _, fc := range friends {
		services.Presence.Send(fc.FriendID, models.ServerCommand{
			Command: models.SrvDeleteChat,
			Data:    fc.ChatID,
		})
	}
	s.log.Info("user logged off")
	s.reply(models.SrvLogOffResponse, models.State(models.StateSuccess))
	s.reply(models.SrvClose, nil)
	return false
}
