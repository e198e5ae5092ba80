package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/piaflabs/piaf/domain"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// SqliteBackend keeps both collections in one sqlite database while
// preserving whole-collection load/save semantics: Load reads every
// row, Save rewrites the table inside one transaction. It is the
// substitution point for a real transactional engine.
type SqliteBackend struct {
	db *sql.DB
}

const (
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts(
                        seq INTEGER PRIMARY KEY AUTOINCREMENT,
                        username varchar(100) UNIQUE NOT NULL,
                        record text NOT NULL
                        )`
	sqlCreatePostsTable = `CREATE TABLE IF NOT EXISTS posts(
                        seq INTEGER PRIMARY KEY AUTOINCREMENT,
                        id uuid UNIQUE NOT NULL,
                        record text NOT NULL
                        )`

	sqlSelectAccounts = `SELECT record FROM accounts ORDER BY seq`
	sqlDeleteAccounts = `DELETE FROM accounts`
	sqlInsertAccount  = `INSERT INTO accounts(username, record) VALUES (?, ?)`

	sqlSelectPosts = `SELECT record FROM posts ORDER BY seq`
	sqlDeletePosts = `DELETE FROM posts`
	sqlInsertPost  = `INSERT INTO posts(id, record) VALUES (?, ?)`
)

// NewSqliteBackend opens (or creates) the database at path and sets up
// the two collection tables.
func NewSqliteBackend(path string) (*SqliteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		log.Printf("Warning: Failed to enable WAL mode: %v", err)
	} else {
		log.Printf("Database journal mode: %s", journalMode)
	}

	db.Exec("PRAGMA synchronous = NORMAL")
	db.Exec("PRAGMA busy_timeout = 5000")

	b := &SqliteBackend{db: db}
	if err := b.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SqliteBackend) createTables() error {
	return b.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlCreateAccountsTable); err != nil {
			return err
		}
		if _, err := tx.Exec(sqlCreatePostsTable); err != nil {
			return err
		}
		return nil
	})
}

// Close closes the underlying database.
func (b *SqliteBackend) Close() error {
	return b.db.Close()
}

// AccountStorage returns the account-collection view of the backend.
func (b *SqliteBackend) AccountStorage() AccountStorage {
	return &sqliteAccountStorage{backend: b}
}

// PostStorage returns the post-collection view of the backend.
func (b *SqliteBackend) PostStorage() PostStorage {
	return &sqlitePostStorage{backend: b}
}

type sqliteAccountStorage struct {
	backend *SqliteBackend
}

type sqlitePostStorage struct {
	backend *SqliteBackend
}

func (s *sqliteAccountStorage) Load() (domain.AccountCollection, error) {
	coll := domain.AccountCollection{Accounts: []domain.Account{}}

	rows, err := s.backend.db.Query(sqlSelectAccounts)
	if err != nil {
		return domain.AccountCollection{}, fmt.Errorf("failed to load accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return domain.AccountCollection{}, err
		}
		var acc domain.Account
		if err := json.Unmarshal([]byte(record), &acc); err != nil {
			return domain.AccountCollection{}, fmt.Errorf("failed to decode account record: %w", err)
		}
		coll.Accounts = append(coll.Accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return domain.AccountCollection{}, err
	}

	return coll, nil
}

func (s *sqliteAccountStorage) Save(coll domain.AccountCollection) error {
	return s.backend.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeleteAccounts); err != nil {
			return err
		}
		for _, acc := range coll.Accounts {
			record, err := json.Marshal(acc)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(sqlInsertAccount, acc.Username, string(record)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sqlitePostStorage) Load() (domain.PostCollection, error) {
	coll := domain.PostCollection{Posts: []domain.Post{}}

	rows, err := s.backend.db.Query(sqlSelectPosts)
	if err != nil {
		return domain.PostCollection{}, fmt.Errorf("failed to load posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return domain.PostCollection{}, err
		}
		var post domain.Post
		if err := json.Unmarshal([]byte(record), &post); err != nil {
			return domain.PostCollection{}, fmt.Errorf("failed to decode post record: %w", err)
		}
		coll.Posts = append(coll.Posts, post)
	}
	if err := rows.Err(); err != nil {
		return domain.PostCollection{}, err
	}

	return coll, nil
}

func (s *sqlitePostStorage) Save(coll domain.PostCollection) error {
	return s.backend.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeletePosts); err != nil {
			return err
		}
		for _, post := range coll.Posts {
			record, err := json.Marshal(post)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(sqlInsertPost, post.Id, string(record)); err != nil {
				return err
			}
		}
		return nil
	})
}

// wrapTransaction runs the given function within a transaction.
func (b *SqliteBackend) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			log.Printf("error in transaction: %s", err)
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}
