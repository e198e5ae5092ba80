package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/piaflabs/piaf/domain"
)

func newTestSqliteBackend(t *testing.T) *SqliteBackend {
	t.Helper()
	backend, err := NewSqliteBackend(filepath.Join(t.TempDir(), "piaf.db"))
	if err != nil {
		t.Fatalf("NewSqliteBackend failed: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestSqliteAccountRoundTrip(t *testing.T) {
	backend := newTestSqliteBackend(t)
	storage := backend.AccountStorage()

	coll, err := storage.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(coll.Accounts) != 0 {
		t.Errorf("Expected fresh database to be empty, got %d accounts", len(coll.Accounts))
	}

	coll.Accounts = append(coll.Accounts,
		domain.Account{Username: "alice", Email: "alice@x.com", Posts: []string{"p1"}, Followers: []string{"bob"}, Followed: []string{}},
		domain.Account{Username: "bob", Email: "bob@x.com", Posts: []string{}, Followers: []string{}, Followed: []string{"alice"}},
	)
	if err := storage.Save(coll); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := storage.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(loaded.Accounts))
	}
	// Insertion order survives via the seq column
	if loaded.Accounts[0].Username != "alice" || loaded.Accounts[1].Username != "bob" {
		t.Errorf("Expected insertion order, got %s, %s", loaded.Accounts[0].Username, loaded.Accounts[1].Username)
	}
	if len(loaded.Accounts[0].Posts) != 1 || loaded.Accounts[0].Posts[0] != "p1" {
		t.Errorf("Expected post refs to survive, got %v", loaded.Accounts[0].Posts)
	}
}

func TestSqlitePostRoundTrip(t *testing.T) {
	backend := newTestSqliteBackend(t)
	storage := backend.PostStorage()

	coll := domain.PostCollection{Posts: []domain.Post{
		{
			Id:        "p1",
			Author:    "alice",
			CreatedAt: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
			Content:   "hello",
			Likes:     []string{"bob"},
			Replies:   []domain.Reply{{Id: "r1", Author: "bob", Content: "hi"}},
			Reporters: []string{},
		},
	}}
	if err := storage.Save(coll); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := storage.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Posts) != 1 {
		t.Fatalf("Expected 1 post, got %d", len(loaded.Posts))
	}
	if loaded.Posts[0].Content != "hello" || len(loaded.Posts[0].Replies) != 1 {
		t.Errorf("Post did not survive round trip: %+v", loaded.Posts[0])
	}
}

func TestSqliteSaveReplacesCollection(t *testing.T) {
	backend := newTestSqliteBackend(t)
	storage := backend.PostStorage()

	storage.Save(domain.PostCollection{Posts: []domain.Post{{Id: "p1", Author: "alice"}, {Id: "p2", Author: "bob"}}})
	storage.Save(domain.PostCollection{Posts: []domain.Post{{Id: "p2", Author: "bob"}}})

	loaded, err := storage.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Posts) != 1 || loaded.Posts[0].Id != "p2" {
		t.Errorf("Expected save to replace the whole collection, got %v", loaded.Posts)
	}
}

func TestStoresOverSqliteBackend(t *testing.T) {
	backend := newTestSqliteBackend(t)
	accounts := NewAccountStore(backend.AccountStorage(), 8)
	posts := NewPostStore(backend.PostStorage(), 140, 280, newTestPolicy())
	coord := NewCoordinator(accounts, posts)

	if _, err := accounts.CreateAccount("alice", "alice@x.com", "Paass123"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	post, err := coord.RegisterPost("alice", "sqlite-backed post", "")
	if err != nil {
		t.Fatalf("RegisterPost failed: %v", err)
	}

	acc, _ := accounts.FindByUsername("alice")
	if !acc.HasPost(post.Id) {
		t.Error("Expected post id attached to the author")
	}

	ok, _ := accounts.Authenticate("alice", "Paass123")
	if !ok {
		t.Error("Expected authentication to work over sqlite")
	}
}
