package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dmail-project/dmail-backend/internal/config"
	"github.com/dmail-project/dmail-backend/internal/models"
	"github.com/dmail-project/dmail-backend/internal/services"
	"github.com/dmail-project/dmail-backend/pkg/utils"
)

// A connection walks Started -> Approved -> Logged. Commands outside the
// current state are answered with the matching error response instead of
// being executed.
type sessionState int

const (
	stateStarted sessionState = iota
	stateApproved
	stateLogged
)

const (
	sendQueueSize = 256
	writeWait     = 10 * time.Second
)

// outbound pairs a server command with an optional session key to install
// after the frame is written. The key-announcing frame itself goes out under
// the previous (nil) key.
type outbound struct {
	cmd        models.ServerCommand
	installKey []byte
}

// Session owns one websocket connection. The reader goroutine runs the
// command handlers, the writer goroutine owns every write to the socket, and
// other sessions reach this one only through Push.
type Session struct {
	conn   *websocket.Conn
	state  sessionState
	userID models.UserID

	// aesKey is read and written by the reader goroutine only. The writer
	// keeps its own copy handed over via outbound.installKey.
	aesKey []byte

	send      chan outbound
	done      chan struct{}
	closeOnce sync.Once

	log *logrus.Entry
}

func NewSession(conn *websocket.Conn) *Session {
	return &Session{
		conn: conn,
		send: make(chan outbound, sendQueueSize),
		done: make(chan struct{}),
		log:  logrus.WithField("remote", conn.RemoteAddr().String()),
	}
}

// Push implements services.Pusher. It never blocks; a full queue drops the
// event and reports false.
func (s *Session) Push(cmd models.ServerCommand) bool {
	select {
	case <-s.done:
		return false
	case s.send <- outbound{cmd: cmd}:
		return true
	default:
		return false
	}
}

func (s *Session) push(o outbound) {
	select {
	case <-s.done:
	case s.send <- o:
	default:
		s.log.WithField("cmd", o.cmd.Command).Warn("send queue full, frame dropped")
	}
}

func (s *Session) reply(command string, data interface{}) {
	s.push(outbound{cmd: models.ServerCommand{Command: command, Data: data}})
}

// Serve runs the connection to completion.
func (s *Session) Serve() {
	defer s.close()
	go s.writeLoop()

	heartbeat := time.Duration(config.Get().User.HeartBeatTime) * time.Second
	readWait := 3 * heartbeat
	s.conn.SetReadDeadline(time.Now().Add(readWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		msgType, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(readWait))
		if msgType != websocket.TextMessage {
			s.log.Warn("binary frame received, closing")
			return
		}
		if s.aesKey != nil {
			payload, err = utils.AESDecrypt(s.aesKey, string(payload))
			if err != nil {
				s.log.WithError(err).Warn("undecryptable frame, closing")
				return
			}
		}
		var cmd models.ClientCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			s.log.WithError(err).Warn("malformed frame, closing")
			return
		}
		if !s.dispatch(context.Background(), cmd) {
			return
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		if s.state == stateLogged {
			services.Presence.Deregister(s.userID)
			s.log.WithField("userId", s.userID).Info("session closed")
		}
		close(s.done)
		s.conn.Close()
	})
}

// dispatch routes one decoded command, returning false to end the session.
func (s *Session) dispatch(ctx context.Context, cmd models.ClientCommand) bool {
	switch cmd.Command {
	case models.CmdPing:
		s.reply(models.SrvPong, nil)
		return true
	case models.CmdPong:
		return true
	case models.CmdClose:
		return false
	}

	switch s.state {
	case stateStarted:
		if cmd.Command == models.CmdSetConnectionPubKey {
			s.handleSetPubKey(cmd.Data)
		} else {
			s.reply(models.SrvSetConnectionPubKeyResponse, models.State(models.StateNeedSetPubKey))
		}
		return true

	case stateApproved:
		switch cmd.Command {
		case models.CmdSetConnectionPubKey:
			s.reply(models.SrvSetConnectionPubKeyResponse, models.State(models.StateHasApproved))
		case models.CmdRegister:
			s.handleRegister(ctx, cmd.Data)
		case models.CmdLogin:
			s.handleLogin(ctx, cmd.Data)
		default:
			s.reply(models.SrvLoginResponse, models.State(models.StateNeedLogin))
		}
		return true
	}

	switch cmd.Command {
	case models.CmdSetConnectionPubKey:
		s.reply(models.SrvSetConnectionPubKeyResponse, models.State(models.StateHasApproved))
	case models.CmdRegister:
		s.reply(models.SrvRegisterResponse, models.State(models.StateUserLogged))
	case models.CmdLogin:
		s.reply(models.SrvLoginResponse, models.State(models.StateUserLogged))
	case models.CmdApplyForToken:
		s.handleApplyForToken(ctx)
	case models.CmdUpdateUserInfo:
		s.handleUpdateUserInfo(ctx, cmd.Data)
	case models.CmdSetUserSetting:
		s.handleSetUserSetting(ctx, cmd.Data)
	case models.CmdLogOff:
		return s.handleLogOff(ctx, cmd.Data)
	case models.CmdPull:
		s.handlePull(ctx, cmd.Data)
	case models.CmdSendMessage:
		s.handleSendMessage(ctx, cmd.Data)
	case models.CmdRevokeMessage:
		s.handleRevokeMessage(ctx, cmd.Data)
	case models.CmdGetMessages:
		s.handleGetMessages(ctx, cmd.Data)
	case models.CmdSetAlreadyRead:
		s.handleSetAlreadyRead(ctx, cmd.Data)
	case models.CmdGetUserReadInGroup:
		s.handleGetUserReadInGroup(ctx, cmd.Data)
	case models.CmdGetUserReadInPrivate:
		s.handleGetUserReadInPrivate(ctx, cmd.Data)
	case models.CmdSendRequest:
		s.handleSendRequest(ctx, cmd.Data)
	case models.CmdSolveRequest:
		s.handleSolveRequest(ctx, cmd.Data)
	case models.CmdCreateGroupChat:
		s.handleCreateGroupChat(ctx, cmd.Data)
	case models.CmdQuitGroupChat:
		s.handleQuitGroupChat(ctx, cmd.Data)
	case models.CmdRemoveGroupMember:
		s.handleRemoveGroupMember(ctx, cmd.Data)
	case models.CmdSetGroupAdmin:
		s.handleSetGroupAdmin(ctx, cmd.Data)
	case models.CmdUnsetGroupAdmin:
		s.handleUnsetGroupAdmin(ctx, cmd.Data)
	case models.CmdGroupOwnerTransfer:
		s.handleGroupOwnerTransfer(ctx, cmd.Data)
	case models.CmdUpdateGroupInfo:
		s.handleUpdateGroupInfo(ctx, cmd.Data)
	case models.CmdSendGroupNotice:
		s.handleSendGroupNotice(ctx, cmd.Data)
	case models.CmdPullGroupNotice:
		s.handlePullGroupNotice(ctx, cmd.Data)
	case models.CmdUnfriend:
		s.handleUnfriend(ctx, cmd.Data)
	case models.CmdGetUserInfo:
		s.handleGetUserInfo(ctx, cmd.Data)
	case models.CmdGetChatInfo:
		s.handleGetChatInfo(ctx, cmd.Data)
	case models.CmdGetGroupUsers:
		s.handleGetGroupUsers(ctx, cmd.Data)
	case models.CmdGetGroupOwner:
		s.handleGetGroupOwner(ctx, cmd.Data)
	case models.CmdGetGroupAdmin:
		s.handleGetGroupAdmin(ctx, cmd.Data)
	case models.CmdUploadFileRequest:
		s.handleUploadFileRequest(ctx, cmd.Data)
	case models.CmdFileUploaded:
		s.handleFileUploaded(ctx, cmd.Data)
	case models.CmdGetFileUrl:
		s.handleGetFileUrl(ctx, cmd.Data)
	case models.CmdGetUserID:
		s.handleGetUserID(ctx, cmd.Data)
	case models.CmdMediaCall:
		s.handleMediaCall(ctx, cmd.Data)
	case models.CmdMediaCallAnswer:
		s.handleMediaCallAnswer(cmd.Data)
	case models.CmdMediaIceCandidate:
		s.handleMediaIceCandidate(cmd.Data)
	case models.CmdMediaCallStop:
		s.handleMediaCallStop(cmd.Data)
	default:
		s.log.WithField("cmd", cmd.Command).Warn("unknown command")
	}
	return true
}

// handleSetPubKey performs the key handshake: import the client's RSA key,
// mint a session key and hand it back encrypted. Every later frame in both
// directions is sealed under the session key.
func (s *Session) handleSetPubKey(data json.RawMessage) {
	var b64 string
	if err := json.Unmarshal(data, &b64); err != nil {
		s.reply(models.SrvSetConnectionPubKeyResponse, models.State(models.StatePubKeyError))
		return
	}
	pub, err := utils.ImportRSAPublicKey(b64)
	if err != nil {
		s.reply(models.SrvSetConnectionPubKeyResponse, models.State(models.StatePubKeyError))
		return
	}
	key, err := utils.GenerateAESKey()
	if err != nil {
		s.reply(models.SrvSetConnectionPubKeyResponse, models.State(models.StateServerError))
		return
	}
	sealed, err := utils.EncryptKeyForPeer(pub, key)
	if err != nil {
		s.reply(models.SrvSetConnectionPubKeyResponse, models.State(models.StatePubKeyError))
		return
	}

	s.aesKey = key
	s.state = stateApproved
	s.push(outbound{
		cmd:        models.ServerCommand{Command: models.SrvSetConnectionSymKey, Data: sealed},
		installKey: key,
	})
}

func (s *Session) writeLoop() {
	heartbeat := time.Duration(config.Get().User.HeartBeatTime) * time.Second
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	var key []byte
	for {
		select {
		case o := <-s.send:
			if err := s.writeCommand(key, o.cmd); err != nil {
				s.conn.Close()
				return
			}
			if o.installKey != nil {
				key = o.installKey
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				return
			}
		case <-s.done:
			// Flush what is already queued before tearing down.
			for {
				select {
				case o := <-s.send:
					if s.writeCommand(key, o.cmd) != nil {
						return
					}
				default:
					s.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(writeWait))
					return
				}
			}
		}
	}
}

func (s *Session) writeCommand(key []byte, cmd models.ServerCommand) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		s.log.WithError(err).WithField("cmd", cmd.Command).Error("marshal frame")
		return nil
	}
	if key != nil {
		sealed, err := utils.AESEncrypt(key, payload)
		if err != nil {
			return err
		}
		payload = []byte(sealed)
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}
