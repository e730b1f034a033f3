// Package db holds the relational models and repository behind the Comment
// Engine, Reaction Engine, and Watchlist Engine, grounded on the teacher's
// jinzhu/gorm dependency (go.mod) — the teacher's own storage/database
// package wraps a key-value engine (LevelDB) with Has/Get/Put style methods;
// this package follows that same "small opaque repository" shape but over a
// relational store, since spec.md §1 explicitly scopes the ORM/schema out of
// CORE and treats persistent storage as an opaque repository with a small
// set of operations.
package db

import (
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
)

// User is the minimal identity record: a wallet address asserted by the
// caller (spec.md §1: "no client authentication in the core").
type User struct {
	ID           string `gorm:"primary_key"`
	WalletAddress string `gorm:"unique_index;not null"`
	CreatedAt    time.Time
}

// CommentStatus mirrors spec.md §3's Comment.status enum.
type CommentStatus string

const (
	CommentStatusProcessing CommentStatus = "Processing"
	CommentStatusPersisted  CommentStatus = "Persisted"
)

// Comment is the persisted row behind a Comment Engine entry.
type Comment struct {
	ID            string `gorm:"primary_key"`
	TokenAddress  string `gorm:"index;not null"`
	UserID        string `gorm:"index;not null"`
	WalletAddress string `gorm:"not null"`
	Content       string `gorm:"type:varchar(500);not null"`
	Status        CommentStatus `gorm:"not null"`
	CreatedAt     time.Time `gorm:"index"`
}

// WatchlistEntry is the persisted row behind the Watchlist Engine.
// Invariant: (UserID, TokenAddress) is unique.
type WatchlistEntry struct {
	ID           string `gorm:"primary_key"`
	UserID       string `gorm:"index:idx_user_token,unique;not null"`
	TokenAddress string `gorm:"index:idx_user_token,unique;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Open runs AutoMigrate for the three tables above against dsn.
func Open(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	conn.AutoMigrate(&User{}, &Comment{}, &WatchlistEntry{})
	return conn, nil
}
