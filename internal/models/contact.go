package models

// Contact is a user the local user can open a conversation with.
type Contact struct {
	UserName string `json:"userName"`
	Online   bool   `json:"isOnline"`
}
