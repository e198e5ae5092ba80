package domain

import (
	"fmt"
	"sort"
	"time"
)

// Reply is a comment attached to a post. Replies are append-only, they
// are never edited or deleted on their own.
type Reply struct {
	Id        string    `json:"reply_id"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content"`
}

// Post is a user-authored record with embedded like, reply and report
// state. Author references an Account by username.
type Post struct {
	Id        string    `json:"post_id"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content"`
	MediaRef  string    `json:"media_ref,omitempty"` // owned by the upload subsystem
	Likes     []string  `json:"likes"`
	Replies   []Reply   `json:"replies"`
	Reports   int       `json:"reports"`
	Reporters []string  `json:"reporters"`
}

func (p *Post) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tAuthor: %s \n\tContent: %s \n\tCreatedAt: %s)",
		p.Id, p.Author, p.Content, p.CreatedAt)
}

// LikedBy reports whether username is in the like set.
func (p *Post) LikedBy(username string) bool {
	for _, u := range p.Likes {
		if u == username {
			return true
		}
	}
	return false
}

// ReportedBy reports whether username already reported this post.
func (p *Post) ReportedBy(username string) bool {
	for _, u := range p.Reporters {
		if u == username {
			return true
		}
	}
	return false
}

// PostCollection is the whole-file post record set.
type PostCollection struct {
	Posts []Post `json:"posts"`
}

// SortByCreatedAtDesc orders posts newest first for chronological views.
// The sort is stable so posts with equal timestamps keep insertion order.
func SortByCreatedAtDesc(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
