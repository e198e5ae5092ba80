package db

import (
	"errors"
	"fmt"
	"log"

	"github.com/piaflabs/piaf/domain"
)

// Coordinator sequences every operation that touches both collections
// so no committed state holds a dangling reference. The two flat files
// are not atomic with respect to each other; compensating actions and
// the Repair pass are the only recovery mechanisms, by design.
type Coordinator struct {
	accounts *AccountStore
	posts    *PostStore
}

// NewCoordinator wires the coordinator to both stores.
func NewCoordinator(accounts *AccountStore, posts *PostStore) *Coordinator {
	return &Coordinator{accounts: accounts, posts: posts}
}

// RegisterPost creates a post for an existing author and records the
// post id on the account. If the bookkeeping step fails the orphaned
// post is deleted again, since there is no two-phase commit over two
// files.
func (c *Coordinator) RegisterPost(author, content, mediaRef string) (*domain.Post, error) {
	if _, err := c.accounts.FindByUsername(author); err != nil {
		return nil, err
	}

	post, err := c.posts.CreatePost(author, content, mediaRef)
	if err != nil {
		return nil, err
	}

	if err := c.accounts.AttachPost(author, post.Id); err != nil {
		if delErr := c.posts.DeleteByID(post.Id); delErr != nil {
			log.Printf("Warning: failed to roll back orphaned post %s: %v", post.Id, delErr)
		}
		return nil, err
	}

	return post, nil
}

// RemovePost deletes a post and detaches its id from the author. An
// author that is already gone is not an error: a deleted post has no
// account left to update.
func (c *Coordinator) RemovePost(id string) error {
	post, err := c.posts.GetByID(id)
	if err != nil {
		return err
	}

	if err := c.posts.DeleteByID(id); err != nil {
		return err
	}

	if err := c.accounts.DetachPost(post.Author, id); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// RemoveAccount deletes the account's posts and follow edges before
// the account record itself. A crash mid-cascade then leaves extra
// cleanup work for Repair instead of posts pointing at a username that
// could be re-registered by someone else.
func (c *Coordinator) RemoveAccount(username string) error {
	if _, err := c.accounts.FindByUsername(username); err != nil {
		return err
	}

	if _, err := c.posts.DeleteByAuthor(username); err != nil {
		return err
	}

	if err := c.accounts.RemoveFollowEdges(username); err != nil {
		return err
	}

	return c.accounts.DeleteAccount(username)
}

// RenameAccount renames the account first and then rewrites post and
// reply authorship. In that order a crash between the steps leaves
// posts under a name that resolves to no one (detectable by Repair)
// rather than a name a new signup could collide with.
func (c *Coordinator) RenameAccount(oldUsername, newUsername string) error {
	if err := c.accounts.RenameAccount(oldUsername, newUsername); err != nil {
		return err
	}

	if err := c.posts.RenameAuthor(oldUsername, newUsername); err != nil {
		return fmt.Errorf("account renamed but post rewrite failed, run repair: %w", err)
	}
	return nil
}
