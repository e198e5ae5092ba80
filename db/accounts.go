package db

import (
	"fmt"
	"sync"

	"github.com/piaflabs/piaf/auth"
	"github.com/piaflabs/piaf/domain"
)

// AccountStore owns the account collection. Every operation is a full
// load-mutate-save cycle over the backing storage; the mutex serializes
// concurrent callers so two read-modify-write cycles cannot lose each
// other's updates (last-writer-wins is the raw file behavior).
type AccountStore struct {
	storage        AccountStorage
	passwordMinLen int
	mu             sync.Mutex
}

// NewAccountStore wires an AccountStore to its storage backend.
func NewAccountStore(storage AccountStorage, passwordMinLen int) *AccountStore {
	return &AccountStore{storage: storage, passwordMinLen: passwordMinLen}
}

// ProfileUpdate is a partial profile edit. Nil fields stay unchanged.
type ProfileUpdate struct {
	Email          *string
	Password       *string
	Bio            *string
	ProfilePicture *string
}

// CreateAccount registers a new account with hashed credentials and
// empty post/follow state. Username and email must be globally unique.
func (s *AccountStore) CreateAccount(username, email, password string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}

	for _, acc := range coll.Accounts {
		if acc.Username == username {
			return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, username)
		}
		if acc.Email == email {
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
	}

	if err := auth.ValidatePassword(password, s.passwordMinLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	hash, salt, err := auth.HashPassword(password, "")
	if err != nil {
		return nil, err
	}

	account := domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		Posts:        []string{},
		Followers:    []string{},
		Followed:     []string{},
	}

	coll.Accounts = append(coll.Accounts, account)
	if err := s.storage.Save(coll); err != nil {
		return nil, err
	}

	return &account, nil
}

// FindByUsername returns the account with the given username.
func (s *AccountStore) FindByUsername(username string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByUsername(username)
}

func (s *AccountStore) findByUsername(username string) (*domain.Account, error) {
	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}
	for i := range coll.Accounts {
		if coll.Accounts[i].Username == username {
			return &coll.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, username)
}

// FindByEmail returns the account with the given email.
func (s *AccountStore) FindByEmail(email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}
	for i := range coll.Accounts {
		if coll.Accounts[i].Email == email {
			return &coll.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, email)
}

// ListAll returns every account in insertion order.
func (s *AccountStore) ListAll() ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}
	return coll.Accounts, nil
}

// CountAccounts derives the live account count from storage. There is
// deliberately no cached counter to keep in sync.
func (s *AccountStore) CountAccounts() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return 0, err
	}
	return len(coll.Accounts), nil
}

// DeleteAccount removes the account record. Cascades into posts and
// other accounts' follow lists are the coordinator's responsibility.
func (s *AccountStore) DeleteAccount(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return err
	}

	kept := coll.Accounts[:0]
	for _, acc := range coll.Accounts {
		if acc.Username != username {
			kept = append(kept, acc)
		}
	}
	if len(kept) == len(coll.Accounts) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, username)
	}
	coll.Accounts = kept

	return s.storage.Save(coll)
}

// Authenticate checks a password against the stored credentials. An
// unknown username and a wrong password are both just false, so error
// shape cannot be used to enumerate usernames.
func (s *AccountStore) Authenticate(username, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return false, err
	}

	for _, acc := range coll.Accounts {
		if acc.Username == username {
			return auth.Verify(password, acc.Salt, acc.PasswordHash), nil
		}
	}
	return false, nil
}

// RenameAccount changes the account's username in place and rewrites
// the follow edges other accounts hold under the old name, so the
// followers/followed symmetry survives the rename. Posts are untouched
// here; the coordinator propagates the rename into the post collection.
func (s *AccountStore) RenameAccount(oldUsername, newUsername string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return err
	}

	found := false
	for i := range coll.Accounts {
		if coll.Accounts[i].Username == newUsername {
			return fmt.Errorf("%w: %s", ErrUsernameTaken, newUsername)
		}
		if coll.Accounts[i].Username == oldUsername {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, oldUsername)
	}

	for i := range coll.Accounts {
		if coll.Accounts[i].Username == oldUsername {
			coll.Accounts[i].Username = newUsername
		}
		renameAll(coll.Accounts[i].Followers, oldUsername, newUsername)
		renameAll(coll.Accounts[i].Followed, oldUsername, newUsername)
	}

	return s.storage.Save(coll)
}

func renameAll(usernames []string, oldUsername, newUsername string) {
	for i, u := range usernames {
		if u == oldUsername {
			usernames[i] = newUsername
		}
	}
}

// UpdateProfile applies a partial profile edit. A new email must be
// unique against all other accounts; a new password goes through the
// policy check and gets a fresh salt.
func (s *AccountStore) UpdateProfile(username string, update ProfileUpdate) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range coll.Accounts {
		if coll.Accounts[i].Username == username {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, username)
	}

	if update.Email != nil {
		for i := range coll.Accounts {
			if i != idx && coll.Accounts[i].Email == *update.Email {
				return nil, fmt.Errorf("%w: %s", ErrEmailTaken, *update.Email)
			}
		}
		coll.Accounts[idx].Email = *update.Email
	}

	if update.Password != nil {
		if err := auth.ValidatePassword(*update.Password, s.passwordMinLen); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
		}
		hash, salt, err := auth.HashPassword(*update.Password, "")
		if err != nil {
			return nil, err
		}
		coll.Accounts[idx].PasswordHash = hash
		coll.Accounts[idx].Salt = salt
	}

	if update.Bio != nil {
		coll.Accounts[idx].Bio = *update.Bio
	}

	if update.ProfilePicture != nil {
		coll.Accounts[idx].ProfilePicture = *update.ProfilePicture
	}

	account := coll.Accounts[idx]
	if err := s.storage.Save(coll); err != nil {
		return nil, err
	}
	return &account, nil
}

// Follow records that follower follows followee. Repeat calls are
// no-ops: the relationship is a set, not a list.
func (s *AccountStore) Follow(follower, followee string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return err
	}

	followerIdx, followeeIdx := -1, -1
	for i := range coll.Accounts {
		if coll.Accounts[i].Username == follower {
			followerIdx = i
		}
		if coll.Accounts[i].Username == followee {
			followeeIdx = i
		}
	}
	if followerIdx == -1 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, follower)
	}
	if followeeIdx == -1 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, followee)
	}

	if coll.Accounts[followerIdx].Follows(followee) {
		return nil
	}

	coll.Accounts[followerIdx].Followed = append(coll.Accounts[followerIdx].Followed, followee)
	coll.Accounts[followeeIdx].Followers = append(coll.Accounts[followeeIdx].Followers, follower)

	return s.storage.Save(coll)
}

// Unfollow removes the relationship. Unfollowing without a prior
// follow is an error, not a silent success.
func (s *AccountStore) Unfollow(follower, followee string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return err
	}

	followerIdx, followeeIdx := -1, -1
	for i := range coll.Accounts {
		if coll.Accounts[i].Username == follower {
			followerIdx = i
		}
		if coll.Accounts[i].Username == followee {
			followeeIdx = i
		}
	}
	if followerIdx == -1 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, follower)
	}
	if followeeIdx == -1 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, followee)
	}

	if !coll.Accounts[followerIdx].Follows(followee) {
		return fmt.Errorf("%w: %s -> %s", ErrRelationshipNotFound, follower, followee)
	}

	coll.Accounts[followerIdx].Followed = removeString(coll.Accounts[followerIdx].Followed, followee)
	coll.Accounts[followeeIdx].Followers = removeString(coll.Accounts[followeeIdx].Followers, follower)

	return s.storage.Save(coll)
}

// AttachPost appends a post id to the account's post list.
func (s *AccountStore) AttachPost(username, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return err
	}

	for i := range coll.Accounts {
		if coll.Accounts[i].Username == username {
			coll.Accounts[i].Posts = append(coll.Accounts[i].Posts, postID)
			return s.storage.Save(coll)
		}
	}
	return fmt.Errorf("%w: %s", ErrAccountNotFound, username)
}

// DetachPost removes a post id from the account's post list. The
// caller is expected to have confirmed membership already.
func (s *AccountStore) DetachPost(username, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return err
	}

	for i := range coll.Accounts {
		if coll.Accounts[i].Username == username {
			coll.Accounts[i].Posts = removeString(coll.Accounts[i].Posts, postID)
			return s.storage.Save(coll)
		}
	}
	return fmt.Errorf("%w: %s", ErrAccountNotFound, username)
}

// RemoveFollowEdges strips username from every other account's
// followers/followed lists. Used by the account-deletion cascade.
func (s *AccountStore) RemoveFollowEdges(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.storage.Load()
	if err != nil {
		return err
	}

	for i := range coll.Accounts {
		coll.Accounts[i].Followers = removeString(coll.Accounts[i].Followers, username)
		coll.Accounts[i].Followed = removeString(coll.Accounts[i].Followed, username)
	}

	return s.storage.Save(coll)
}

func removeString(list []string, value string) []string {
	kept := list[:0]
	for _, v := range list {
		if v != value {
			kept = append(kept, v)
		}
	}
	return kept
}
