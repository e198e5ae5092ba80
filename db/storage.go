package db

import "github.com/piaflabs/piaf/domain"

// AccountStorage loads and saves the whole account collection. Every
// mutation is a full read-modify-write cycle, so backends only need
// these two operations. Swapping in a transactional backend later does
// not change any store logic.
type AccountStorage interface {
	Load() (domain.AccountCollection, error)
	Save(domain.AccountCollection) error
}

// PostStorage is the post-collection counterpart of AccountStorage.
type PostStorage interface {
	Load() (domain.PostCollection, error)
	Save(domain.PostCollection) error
}
