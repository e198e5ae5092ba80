package db

import (
	"errors"
	"testing"

	"github.com/piaflabs/piaf/domain"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *AccountStore, *PostStore) {
	t.Helper()
	dir := t.TempDir()
	accounts := NewAccountStore(NewJSONAccountStorage(dir), 8)
	posts := NewPostStore(NewJSONPostStorage(dir), 140, 280, newTestPolicy())
	return NewCoordinator(accounts, posts), accounts, posts
}

func TestRegisterPost(t *testing.T) {
	coord, accounts, _ := newTestCoordinator(t)
	accounts.CreateAccount("alice", "alice@x.com", "Paass123")

	post, err := coord.RegisterPost("alice", "Hello World!", "")
	if err != nil {
		t.Fatalf("RegisterPost failed: %v", err)
	}

	acc, _ := accounts.FindByUsername("alice")
	if !acc.HasPost(post.Id) {
		t.Error("Expected post id to be attached to the author")
	}
}

func TestRegisterPostUnknownAuthor(t *testing.T) {
	coord, _, posts := newTestCoordinator(t)

	if _, err := coord.RegisterPost("ghost", "Hello", ""); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}

	// The precheck runs before creation: no post may exist for a
	// nonexistent author
	all, _ := posts.ListAll()
	if len(all) != 0 {
		t.Errorf("Expected no posts, got %d", len(all))
	}
}

// failingAccountStorage lets Save succeed a fixed number of times and
// then fails, to exercise the compensating rollback.
type failingAccountStorage struct {
	inner     AccountStorage
	savesLeft int
}

func (s *failingAccountStorage) Load() (domain.AccountCollection, error) {
	return s.inner.Load()
}

func (s *failingAccountStorage) Save(coll domain.AccountCollection) error {
	if s.savesLeft <= 0 {
		return errors.New("disk full")
	}
	s.savesLeft--
	return s.inner.Save(coll)
}

func TestRegisterPostRollsBackOnAttachFailure(t *testing.T) {
	dir := t.TempDir()
	failing := &failingAccountStorage{inner: NewJSONAccountStorage(dir), savesLeft: 1}
	accounts := NewAccountStore(failing, 8)
	posts := NewPostStore(NewJSONPostStorage(dir), 140, 280, newTestPolicy())
	coord := NewCoordinator(accounts, posts)

	// First save creates the account, the next one (attach) fails
	if _, err := accounts.CreateAccount("alice", "alice@x.com", "Paass123"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if _, err := coord.RegisterPost("alice", "doomed post", ""); err == nil {
		t.Fatal("Expected RegisterPost to fail")
	}

	// The compensating delete removed the orphaned post
	all, _ := posts.ListAll()
	if len(all) != 0 {
		t.Errorf("Expected orphaned post to be rolled back, got %d posts", len(all))
	}
}

func TestRemovePost(t *testing.T) {
	coord, accounts, posts := newTestCoordinator(t)
	accounts.CreateAccount("alice", "alice@x.com", "Paass123")
	post, _ := coord.RegisterPost("alice", "bye", "")

	if err := coord.RemovePost(post.Id); err != nil {
		t.Fatalf("RemovePost failed: %v", err)
	}

	if _, err := posts.GetByID(post.Id); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("Expected ErrPostNotFound, got %v", err)
	}
	acc, _ := accounts.FindByUsername("alice")
	if acc.HasPost(post.Id) {
		t.Error("Expected post id to be detached from the author")
	}

	if err := coord.RemovePost("nonexistent"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("Expected ErrPostNotFound for unknown id, got %v", err)
	}
}

func TestRemovePostAuthorAlreadyGone(t *testing.T) {
	coord, accounts, posts := newTestCoordinator(t)
	accounts.CreateAccount("alice", "alice@x.com", "Paass123")
	post, _ := coord.RegisterPost("alice", "stranded", "")

	// The author vanishes independently of the post
	accounts.DeleteAccount("alice")

	if err := coord.RemovePost(post.Id); err != nil {
		t.Errorf("Expected missing author to be swallowed, got %v", err)
	}
	if _, err := posts.GetByID(post.Id); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("Expected post to be deleted, got %v", err)
	}
}

func TestRemoveAccountCascades(t *testing.T) {
	coord, accounts, posts := newTestCoordinator(t)
	accounts.CreateAccount("alice", "alice@x.com", "Paass123")
	accounts.CreateAccount("bob", "bob@x.com", "Paass123")
	accounts.CreateAccount("carol", "carol@x.com", "Paass123")

	coord.RegisterPost("alice", "post one", "")
	coord.RegisterPost("alice", "post two", "")
	coord.RegisterPost("bob", "bob's post", "")

	accounts.Follow("bob", "alice")
	accounts.Follow("alice", "carol")

	if err := coord.RemoveAccount("alice"); err != nil {
		t.Fatalf("RemoveAccount failed: %v", err)
	}

	if _, err := accounts.FindByUsername("alice"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Expected account to be gone, got %v", err)
	}

	all, _ := posts.ListAll()
	for _, p := range all {
		if p.Author == "alice" {
			t.Errorf("Expected no posts by alice to remain, found %s", p.Id)
		}
	}
	if len(all) != 1 {
		t.Errorf("Expected only bob's post to remain, got %d posts", len(all))
	}

	// No remaining account may reference alice in its follow lists
	remaining, _ := accounts.ListAll()
	for _, acc := range remaining {
		for _, u := range acc.Followers {
			if u == "alice" {
				t.Errorf("Expected alice to be gone from %s's followers", acc.Username)
			}
		}
		for _, u := range acc.Followed {
			if u == "alice" {
				t.Errorf("Expected alice to be gone from %s's followed", acc.Username)
			}
		}
	}

	if err := coord.RemoveAccount("alice"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound on second removal, got %v", err)
	}
}

func TestRenameAccountCascades(t *testing.T) {
	coord, accounts, posts := newTestCoordinator(t)
	accounts.CreateAccount("old", "old@x.com", "Paass123")
	accounts.CreateAccount("bob", "bob@x.com", "Paass123")

	own, _ := coord.RegisterPost("old", "my post", "")
	other, _ := coord.RegisterPost("bob", "bob's post", "")
	posts.AddReply(other.Id, "old", "my reply elsewhere")

	if err := coord.RenameAccount("old", "new"); err != nil {
		t.Fatalf("RenameAccount failed: %v", err)
	}

	if _, err := accounts.FindByUsername("old"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Expected 'old' to be gone, got %v", err)
	}
	if _, err := accounts.FindByUsername("new"); err != nil {
		t.Errorf("Expected 'new' to exist, got %v", err)
	}

	renamed, _ := posts.GetByID(own.Id)
	if renamed.Author != "new" {
		t.Errorf("Expected post author 'new', got '%s'", renamed.Author)
	}
	fetched, _ := posts.GetByID(other.Id)
	if fetched.Replies[0].Author != "new" {
		t.Errorf("Expected reply author 'new', got '%s'", fetched.Replies[0].Author)
	}
}

func TestRenameAccountTaken(t *testing.T) {
	coord, accounts, _ := newTestCoordinator(t)
	accounts.CreateAccount("old", "old@x.com", "Paass123")
	accounts.CreateAccount("taken", "taken@x.com", "Paass123")

	if err := coord.RenameAccount("old", "taken"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}
}

func TestRepair(t *testing.T) {
	coord, accounts, posts := newTestCoordinator(t)
	accounts.CreateAccount("alice", "alice@x.com", "Paass123")
	accounts.CreateAccount("bob", "bob@x.com", "Paass123")
	coord.RegisterPost("alice", "fine post", "")
	accounts.Follow("alice", "bob")

	// Simulate crash leftovers: a post by a vanished author, a stale
	// post id and a follow edge to an account that is gone
	posts.CreatePost("ghost", "orphan", "")
	accounts.AttachPost("alice", "no-such-post")
	accounts.DeleteAccount("bob")

	stats, err := coord.Repair()
	if err != nil {
		t.Fatalf("Repair failed: %v", err)
	}

	if stats.OrphanedPosts != 1 {
		t.Errorf("Expected 1 orphaned post, got %d", stats.OrphanedPosts)
	}
	if stats.DanglingPostRefs != 1 {
		t.Errorf("Expected 1 dangling post ref, got %d", stats.DanglingPostRefs)
	}
	if stats.DanglingFollowers == 0 {
		t.Error("Expected dangling follow edges to be pruned")
	}

	alice, _ := accounts.FindByUsername("alice")
	if alice.Follows("bob") {
		t.Error("Expected alice's edge to deleted bob to be pruned")
	}

	all, _ := posts.ListAll()
	if len(all) != 1 || all[0].Author != "alice" {
		t.Errorf("Expected only alice's post to survive, got %v", all)
	}

	// A clean tree repairs to zero
	stats, err = coord.Repair()
	if err != nil {
		t.Fatalf("Repair failed: %v", err)
	}
	if stats.OrphanedPosts != 0 || stats.DanglingPostRefs != 0 || stats.DanglingFollowers != 0 {
		t.Errorf("Expected nothing to repair on a clean tree, got %+v", stats)
	}
}
