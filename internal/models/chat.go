package models

// ChatInfo is stored serialized under chat:{id}:info and pushed verbatim.
type ChatInfo struct {
	ID         ChatID `json:"id"`
	Name       string `json:"name"`
	AvaterHash string `json:"avaterHash"`
}

// ChatMembers distinguishes the two chat variants. Private chats always have
// exactly two users.
type ChatMembers struct {
	IsGroup bool
	Users   []UserID
}

func PrivateMembers(a, b UserID) ChatMembers {
	return ChatMembers{Users: []UserID{a, b}}
}

func GroupMembers(users []UserID) ChatMembers {
	return ChatMembers{IsGroup: true, Users: users}
}

// Contains reports whether id is a member.
func (m ChatMembers) Contains(id UserID) bool {
	for _, u := range m.Users {
		if u == id {
			return true
		}
	}
	return false
}

// Other returns the peer of id in a private chat.
func (m ChatMembers) Other(id UserID) UserID {
	if m.Users[0] == id {
		return m.Users[1]
	}
	return m.Users[0]
}

type MemberChangeType string

const (
	AddMember    MemberChangeType = "AddMember"
	DeleteMember MemberChangeType = "DeleteMember"
)

// MemberChangeData is the GroupMemberChange push payload.
type MemberChangeData struct {
	Type   MemberChangeType `json:"type"`
	ChatID ChatID           `json:"chatId"`
	UserID UserID           `json:"userId"`
}

// Admin message texts announced inside chats. Existing clients match these
// literal strings, so they are wire constants.
const (
	AdminMsgFriendMade   = "你们成为好友力，开始聊天吧"
	AdminMsgGroupCreated = "建立群聊成功"
)

func AdminMsgUserJoined(name string) string { return name + "加入群聊" }

func AdminMsgUserQuit(name string) string { return name + "退出群聊" }

func AdminMsgUserRemoved(user, admin string) string { return user + "被" + admin + "移出群聊" }

func AdminMsgUserInvited(inviter, user string) string {
	return "群成员" + inviter + "邀请用户" + user + "加入群聊"
}
