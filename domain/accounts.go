package domain

import (
	"fmt"
)

// Account is a registered user identity. Username doubles as the foreign
// key referenced by posts and replies, so it only ever changes through
// the rename cascade.
type Account struct {
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	PasswordHash   string   `json:"password_hash"`
	Salt           string   `json:"salt"`
	Bio            string   `json:"bio,omitempty"`
	ProfilePicture string   `json:"profile_picture,omitempty"` // base64-encoded payload
	Posts          []string `json:"posts"`                     // authored post ids, insertion order
	Followers      []string `json:"followers"`
	Followed       []string `json:"followed"`
}

func (acc *Account) ToString() string {
	return fmt.Sprintf("\n\tUsername: %s \n\tEmail: %s \n\tPosts: %d \n\tFollowers: %d)",
		acc.Username, acc.Email, len(acc.Posts), len(acc.Followers))
}

// HasPost reports whether the given post id is in the account's post list.
func (acc *Account) HasPost(postID string) bool {
	for _, id := range acc.Posts {
		if id == postID {
			return true
		}
	}
	return false
}

// Follows reports whether the account currently follows username.
func (acc *Account) Follows(username string) bool {
	for _, u := range acc.Followed {
		if u == username {
			return true
		}
	}
	return false
}

// AccountCollection is the whole-file account record set.
type AccountCollection struct {
	Accounts []Account `json:"accounts"`
}
