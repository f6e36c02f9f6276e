package repositories

import "chat-sync-service/internal/treestore"

const (
	ChatsRoot = "chats"
	UsersRoot = "users"
)

func ChatPath(chatID string) string {
	return treestore.Join(ChatsRoot, chatID)
}

func ChatFieldPath(chatID, field string) string {
	return treestore.Join(ChatsRoot, chatID, field)
}

func ParticipantsPath(chatID string) string {
	return ChatFieldPath(chatID, "participants")
}

func AdminPath(chatID, uid string) string {
	return treestore.Join(ChatsRoot, chatID, "admin", uid)
}

func LastMessageIDPath(chatID string) string {
	return ChatFieldPath(chatID, "lastMessageId")
}

func MessagesPath(chatID string) string {
	return ChatFieldPath(chatID, "messages")
}

func MessagePath(chatID, messageID string) string {
	return treestore.Join(ChatsRoot, chatID, "messages", messageID)
}

func UserPath(uid string) string {
	return treestore.Join(UsersRoot, uid)
}

func UserFieldPath(uid, field string) string {
	return treestore.Join(UsersRoot, uid, field)
}

func SummaryPath(uid, chatID string) string {
	return treestore.Join(UsersRoot, uid, "chatUser", chatID)
}

func SummaryFieldPath(uid, chatID, field string) string {
	return treestore.Join(UsersRoot, uid, "chatUser", chatID, field)
}

func FriendPath(uid, friendID string) string {
	return treestore.Join(UsersRoot, uid, "friends", friendID)
}

func FriendRequestPath(uid, fromID string) string {
	return treestore.Join(UsersRoot, uid, "friendRequests", fromID)
}

func HiddenChatPath(uid, chatID string) string {
	return treestore.Join(UsersRoot, uid, "hiddenChats", chatID)
}

func DeviceTokenPath(uid, token string) string {
	return treestore.Join(UsersRoot, uid, "deviceTokens", token)
}
