package models

import "encoding/json"

// Request content kinds. The tag values are fixed by the wire contract.
const (
	ReqMakeFriend       = "MakeFriend"
	ReqJoinGroup        = "JoinGroup"
	ReqGroupInvitation  = "GroupInvitation"
	ReqInvitedJoinGroup = "InvitedJoinGroup"
)

// RequestContent is the tagged union carried inside a user request. Only the
// fields of the active variant are populated.
type RequestContent struct {
	Type       string `json:"type"`
	ReceiverID UserID `json:"receiverId,omitempty"`
	ChatID     ChatID `json:"chatId,omitempty"`
	InviterID  UserID `json:"inviterId,omitempty"`
}

type RequestInfo struct {
	ReqID    ReqID          `json:"reqId"`
	SenderID UserID         `json:"senderId"`
	Message  string         `json:"message"`
	Content  RequestContent `json:"content"`
}

type RequestState string

const (
	ReqUnsolved RequestState = "Unsolved"
	ReqRefused  RequestState = "Refused"
	ReqApproved RequestState = "Approved"
)

// UserRequest is the single request shape exchanged over the wire.
type UserRequest struct {
	Info  RequestInfo  `json:"info"`
	State RequestState `json:"state"`
}

// RequestHandler is the user or user set allowed to solve a request.
type RequestHandler struct {
	One   UserID
	Group []UserID
}

func OneHandler(id UserID) RequestHandler { return RequestHandler{One: id} }

func GroupHandler(ids []UserID) RequestHandler { return RequestHandler{Group: ids} }

func (h RequestHandler) IsHandler(id UserID) bool {
	if h.Group == nil {
		return h.One == id
	}
	for _, u := range h.Group {
		if u == id {
			return true
		}
	}
	return false
}

// IDs returns every handler id.
func (h RequestHandler) IDs() []UserID {
	if h.Group == nil {
		return []UserID{h.One}
	}
	return h.Group
}

// MarshalJSON keeps the untagged one-or-many handler encoding.
func (h RequestHandler) MarshalJSON() ([]byte, error) {
	if h.Group == nil {
		return json.Marshal(h.One)
	}
	return json.Marshal(h.Group)
}

func (h *RequestHandler) UnmarshalJSON(data []byte) error {
	var one UserID
	if err := json.Unmarshal(data, &one); err == nil {
		*h = RequestHandler{One: one}
		return nil
	}
	var many []UserID
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*h = RequestHandler{Group: many}
	return nil
}

// RequestError pairs the request kind with its variant-specific error tag,
// e.g. {"type":"MakeFriend","errorType":"SameUser"}. The GroupInvation
// spelling is fixed by the wire contract.
type RequestError struct {
	Type      string `json:"type"`
	ErrorType string `json:"errorType"`
}

const ReqErrGroupInvation = "GroupInvation"

// Request error tags shared across variants.
const (
	ReqErrSameUser        = "SameUser"
	ReqErrUserNotFound    = "UserNotFound"
	ReqErrDatabaseError   = "DatabaseError"
	ReqErrRequestExisted  = "RequestExisted"
	ReqErrRequestExist    = "RequestExist"
	ReqErrAlreadyBeFrineds = "AlreadyBeFrineds"
	ReqErrAlreadyInGroup  = "AlreadyInGroup"
	ReqErrNotGroupChat    = "NotGroupChat"
	ReqErrNotFriend       = "NotFriend"
	ReqErrUserNotInChat   = "UserNotInChat"
)

// SendRequestState is either a bare state string or a wrapped RequestError:
// "Success" | "DatabaseError" | {"RequestError":{...}}.
type SendRequestState struct {
	Plain string
	Err   *RequestError
}

func (s SendRequestState) MarshalJSON() ([]byte, error) {
	if s.Err != nil {
		return json.Marshal(map[string]*RequestError{"RequestError": s.Err})
	}
	return json.Marshal(s.Plain)
}

func (s *SendRequestState) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*s = SendRequestState{Plain: plain}
		return nil
	}
	var wrapped struct {
		RequestError *RequestError `json:"RequestError"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*s = SendRequestState{Err: wrapped.RequestError}
	return nil
}
