package db

import "log"

// RepairStats summarizes what a consistency pass cleaned up.
type RepairStats struct {
	OrphanedPosts     int // posts whose author no longer exists
	DanglingPostRefs  int // post ids on accounts with no matching post
	DanglingFollowers int // follow edges pointing at missing accounts
}

// Repair is the startup consistency pass. Cross-file cascades are not
// crash-atomic, so a crash between two saves can leave an orphaned
// post, a stale post id on an account, or a follow edge to a deleted
// account. Repair prunes all three and reports what it found.
func (c *Coordinator) Repair() (RepairStats, error) {
	var stats RepairStats

	c.accounts.mu.Lock()
	defer c.accounts.mu.Unlock()
	c.posts.mu.Lock()
	defer c.posts.mu.Unlock()

	accColl, err := c.accounts.storage.Load()
	if err != nil {
		return stats, err
	}
	postColl, err := c.posts.storage.Load()
	if err != nil {
		return stats, err
	}

	usernames := make(map[string]bool, len(accColl.Accounts))
	for _, acc := range accColl.Accounts {
		usernames[acc.Username] = true
	}

	// Drop posts pointing at accounts that no longer exist.
	keptPosts := postColl.Posts[:0]
	for _, post := range postColl.Posts {
		if usernames[post.Author] {
			keptPosts = append(keptPosts, post)
		} else {
			stats.OrphanedPosts++
			log.Printf("Repair: removing orphaned post %s (author %s is gone)", post.Id, post.Author)
		}
	}
	postColl.Posts = keptPosts

	postIds := make(map[string]bool, len(postColl.Posts))
	for _, post := range postColl.Posts {
		postIds[post.Id] = true
	}

	// Drop post ids and follow edges with no live target.
	for i := range accColl.Accounts {
		keptIds := accColl.Accounts[i].Posts[:0]
		for _, id := range accColl.Accounts[i].Posts {
			if postIds[id] {
				keptIds = append(keptIds, id)
			} else {
				stats.DanglingPostRefs++
			}
		}
		accColl.Accounts[i].Posts = keptIds

		before := len(accColl.Accounts[i].Followers) + len(accColl.Accounts[i].Followed)
		accColl.Accounts[i].Followers = retainKnown(accColl.Accounts[i].Followers, usernames)
		accColl.Accounts[i].Followed = retainKnown(accColl.Accounts[i].Followed, usernames)
		stats.DanglingFollowers += before - len(accColl.Accounts[i].Followers) - len(accColl.Accounts[i].Followed)
	}

	if stats.OrphanedPosts > 0 {
		if err := c.posts.storage.Save(postColl); err != nil {
			return stats, err
		}
	}
	if stats.DanglingPostRefs > 0 || stats.DanglingFollowers > 0 {
		if err := c.accounts.storage.Save(accColl); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func retainKnown(usernames []string, known map[string]bool) []string {
	kept := usernames[:0]
	for _, u := range usernames {
		if known[u] {
			kept = append(kept, u)
		}
	}
	return kept
}
