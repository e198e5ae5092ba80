package db

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/piaflabs/piaf/domain"
)

// PostStore owns the post collection, including the like, reply and
// report state embedded in each post. Author existence is checked by
// the coordinator before a post is registered.
type PostStore struct {
	storage     PostStorage
	postMaxLen  int
	replyMaxLen int
	policy      domain.ModerationPolicy
	mu          sync.Mutex
}

// NewPostStore wires a PostStore to its storage backend and limits.
func NewPostStore(storage PostStorage, postMaxLen, replyMaxLen int, policy domain.ModerationPolicy) *PostStore {
	return &PostStore{
		storage:     storage,
		postMaxLen:  postMaxLen,
		replyMaxLen: replyMaxLen,
		policy:      policy,
	}
}

// ReportResult tells the caller what a report did: whether it counted
// and whether it pushed the post over the removal threshold.
type ReportResult struct {
	Reported bool
	Removed  bool
}

// CreatePost appends a new post with a fresh id and timestamp. The
// length bound counts characters, not bytes.
func (s *PostStore) CreatePost(author, content, mediaRef string) (*domain.Post, error) {
	if n := utf8.RuneCountInString(content); n > s.postMaxLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrContentTooLong, n, s.postMaxLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}

	post := domain.Post{
		Id:        uuid.NewString(),
		Author:    author,
		CreatedAt: time.Now(),
		Content:   content,
		MediaRef:  mediaRef,
		Likes:     []string{},
		Replies:   []domain.Reply{},
		Reporters: []string{},
	}

	coll.Posts = append(coll.Posts, post)
	if err := s.storage.Save(coll); err != nil {
		return nil, err
	}

	return &post, nil
}

// GetByID returns the post with the given id.
func (s *PostStore) GetByID(id string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}
	for i := range coll.Posts {
		if coll.Posts[i].Id == id {
			return &coll.Posts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
}

// DeleteByID removes the post with the given id.
func (s *PostStore) DeleteByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return err
	}

	kept := coll.Posts[:0]
	for _, post := range coll.Posts {
		if post.Id != id {
			kept = append(kept, post)
		}
	}
	if len(kept) == len(coll.Posts) {
		return fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}
	coll.Posts = kept

	return s.storage.Save(coll)
}

// ListAll returns every post in insertion order. Callers sort with
// domain.SortByCreatedAtDesc for chronological views.
func (s *PostStore) ListAll() ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}
	return coll.Posts, nil
}

// ListByAuthor returns the author's posts in insertion order.
func (s *PostStore) ListByAuthor(author string) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}

	var posts []domain.Post
	for _, post := range coll.Posts {
		if post.Author == author {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

// RandomPost picks a random post id from the collection.
func (s *PostStore) RandomPost() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return "", err
	}
	if len(coll.Posts) == 0 {
		return "", fmt.Errorf("%w: collection is empty", ErrPostNotFound)
	}
	return coll.Posts[rand.Intn(len(coll.Posts))].Id, nil
}

// ToggleLike flips username's membership in the post's like set. There
// are no separate like/unlike entry points.
func (s *PostStore) ToggleLike(id, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return err
	}

	for i := range coll.Posts {
		if coll.Posts[i].Id != id {
			continue
		}
		if coll.Posts[i].LikedBy(username) {
			coll.Posts[i].Likes = removeString(coll.Posts[i].Likes, username)
		} else {
			coll.Posts[i].Likes = append(coll.Posts[i].Likes, username)
		}
		return s.storage.Save(coll)
	}
	return fmt.Errorf("%w: %s", ErrPostNotFound, id)
}

// CountLikes returns the like set size. A missing post counts as zero
// so a feed render never fails over a concurrently deleted post.
func (s *PostStore) CountLikes(id string) (int, error) {
	post, err := s.GetByID(id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return len(post.Likes), nil
}

// HasLiked reports whether username liked the post. A missing post is
// false for the same rendering-safety reason as CountLikes.
func (s *PostStore) HasLiked(id, username string) (bool, error) {
	post, err := s.GetByID(id)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return false, nil
		}
		return false, err
	}
	return post.LikedBy(username), nil
}

// AddReply appends a reply to the post in arrival order.
func (s *PostStore) AddReply(id, author, content string) (*domain.Reply, error) {
	if n := utf8.RuneCountInString(content); n > s.replyMaxLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrContentTooLong, n, s.replyMaxLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}

	for i := range coll.Posts {
		if coll.Posts[i].Id != id {
			continue
		}
		reply := domain.Reply{
			Id:        uuid.NewString(),
			Author:    author,
			CreatedAt: time.Now(),
			Content:   content,
		}
		coll.Posts[i].Replies = append(coll.Posts[i].Replies, reply)
		if err := s.storage.Save(coll); err != nil {
			return nil, err
		}
		return &reply, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
}

// Report registers a distinct reporter on the post and applies the
// moderation policy. A duplicate report is ignored, not an error. When
// the policy says remove, the post is deleted in the same cycle.
func (s *PostStore) Report(id, reporter string) (ReportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return ReportResult{}, err
	}

	for i := range coll.Posts {
		if coll.Posts[i].Id != id {
			continue
		}
		if coll.Posts[i].ReportedBy(reporter) {
			return ReportResult{}, nil
		}

		coll.Posts[i].Reporters = append(coll.Posts[i].Reporters, reporter)
		coll.Posts[i].Reports++

		if s.policy.ShouldRemove(&coll.Posts[i]) {
			coll.Posts = append(coll.Posts[:i], coll.Posts[i+1:]...)
			if err := s.storage.Save(coll); err != nil {
				return ReportResult{}, err
			}
			return ReportResult{Reported: true, Removed: true}, nil
		}

		if err := s.storage.Save(coll); err != nil {
			return ReportResult{}, err
		}
		return ReportResult{Reported: true}, nil
	}
	return ReportResult{}, fmt.Errorf("%w: %s", ErrPostNotFound, id)
}

// RenameAuthor rewrites the author on every post and reply that the
// old username wrote. The whole collection is swept in one pass since
// replies on other people's posts carry the old name too.
func (s *PostStore) RenameAuthor(oldUsername, newUsername string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return err
	}

	for i := range coll.Posts {
		if coll.Posts[i].Author == oldUsername {
			coll.Posts[i].Author = newUsername
		}
		for j := range coll.Posts[i].Replies {
			if coll.Posts[i].Replies[j].Author == oldUsername {
				coll.Posts[i].Replies[j].Author = newUsername
			}
		}
	}

	return s.storage.Save(coll)
}

// DeleteByAuthor removes every post the author wrote and returns the
// removed ids. Used by the account-deletion cascade.
func (s *PostStore) DeleteByAuthor(author string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}

	var removed []string
	kept := coll.Posts[:0]
	for _, post := range coll.Posts {
		if post.Author == author {
			removed = append(removed, post.Id)
		} else {
			kept = append(kept, post)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	coll.Posts = kept

	if err := s.storage.Save(coll); err != nil {
		return nil, err
	}
	return removed, nil
}
