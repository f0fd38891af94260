package chat

import "github.com/viVeK21111/chatgpt-clone/internal/common"

func NewSessionID() (string, error) {
	return common.NewULID()
}
