package db

import (
	"strings"
	"time"

	"github.com/hashicorp/go-uuid"
	"github.com/jinzhu/gorm"
	"github.com/usezoracle/tba-be/internal/apperr"
)

// Repository is the small opaque set of relational operations the engines
// need — spec.md §1 scopes the schema/ORM itself out of CORE.
type Repository struct {
	conn *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{conn: conn}
}

// Ping verifies the underlying connection is reachable, used by the
// /health/detailed endpoint.
func (r *Repository) Ping() error {
	return r.conn.DB().Ping()
}

func newID() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		// hashicorp/go-uuid only fails if crypto/rand is broken; fall back
		// to a timestamp-based id rather than panicking.
		return time.Now().Format("20060102150405.000000000")
	}
	return id
}

// GetOrCreateUserByWallet implements the "get-or-upsert user by wallet"
// step used by the Comment and Watchlist Engines (spec.md §4.11, §4.13).
func (r *Repository) GetOrCreateUserByWallet(wallet string) (*User, error) {
	wallet = strings.ToLower(wallet)
	var u User
	err := r.conn.Where("wallet_address = ?", wallet).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, apperr.Transient("looking up user by wallet", err)
	}

	u = User{ID: newID(), WalletAddress: wallet, CreatedAt: time.Now()}
	if err := r.conn.Create(&u).Error; err != nil {
		// Conflict: a concurrent insert beat us to it; re-read.
		var existing User
		if rerr := r.conn.Where("wallet_address = ?", wallet).First(&existing).Error; rerr == nil {
			return &existing, nil
		}
		return nil, apperr.Transient("creating user", err)
	}
	return &u, nil
}

// FindUserByWallet looks up a user without creating one.
func (r *Repository) FindUserByWallet(wallet string) (*User, error) {
	wallet = strings.ToLower(wallet)
	var u User
	err := r.conn.Where("wallet_address = ?", wallet).First(&u).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Transient("finding user by wallet", err)
	}
	return &u, nil
}

// InsertComment persists one comment row.
func (r *Repository) InsertComment(c *Comment) error {
	if err := r.conn.Create(c).Error; err != nil {
		return apperr.Transient("inserting comment", err)
	}
	return nil
}

// LatestComments returns the newest-first comments for tokenAddress, capped
// at limit.
func (r *Repository) LatestComments(tokenAddress string, limit int) ([]Comment, error) {
	var out []Comment
	err := r.conn.
		Where("token_address = ?", strings.ToLower(tokenAddress)).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, apperr.Transient("listing comments", err)
	}
	return out, nil
}

// PruneCommentsBeyond deletes rows beyond the newest `keep` for tokenAddress.
// Non-transactional by design (spec.md §9's documented open question): a
// concurrent insert can transiently expose keep+1 rows, which is acceptable
// since the cache (capped at 50) remains the source of truth for readers.
func (r *Repository) PruneCommentsBeyond(tokenAddress string, keep int) error {
	var ids []string
	err := r.conn.Model(&Comment{}).
		Where("token_address = ?", strings.ToLower(tokenAddress)).
		Order("created_at desc").
		Offset(keep).
		Pluck("id", &ids).Error
	if err != nil {
		return apperr.Transient("selecting comments to prune", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := r.conn.Where("id in (?)", ids).Delete(&Comment{}).Error; err != nil {
		return apperr.Transient("pruning comments", err)
	}
	return nil
}

// ExistingWatchlistTokens returns the subset of tokens the user already
// watches, per spec.md §4.13 step 3.
func (r *Repository) ExistingWatchlistTokens(userID string, tokens []string) (map[string]struct{}, error) {
	var rows []WatchlistEntry
	err := r.conn.Where("user_id = ? AND token_address in (?)", userID, tokens).Find(&rows).Error
	if err != nil {
		return nil, apperr.Transient("loading existing watchlist entries", err)
	}
	out := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		out[row.TokenAddress] = struct{}{}
	}
	return out, nil
}

// InsertWatchlistEntries batch-inserts new entries, skipping duplicates
// (Conflict handling per spec.md §7: "skip-duplicates at the repository
// layer").
func (r *Repository) InsertWatchlistEntries(userID string, tokens []string) error {
	now := time.Now()
	for _, token := range tokens {
		entry := WatchlistEntry{ID: newID(), UserID: userID, TokenAddress: token, CreatedAt: now, UpdatedAt: now}
		if err := r.conn.Create(&entry).Error; err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return apperr.Transient("inserting watchlist entry", err)
		}
	}
	return nil
}

// DeleteWatchlistEntries removes entries for userID among tokens and returns
// the count removed.
func (r *Repository) DeleteWatchlistEntries(userID string, tokens []string) (int, error) {
	result := r.conn.Where("user_id = ? AND token_address in (?)", userID, tokens).Delete(&WatchlistEntry{})
	if result.Error != nil {
		return 0, apperr.Transient("deleting watchlist entries", result.Error)
	}
	return int(result.RowsAffected), nil
}

// ListWatchlist paginates a user's watchlist newest-first.
func (r *Repository) ListWatchlist(userID string, page, limit int) ([]WatchlistEntry, int, error) {
	var total int
	if err := r.conn.Model(&WatchlistEntry{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, apperr.Transient("counting watchlist", err)
	}

	var rows []WatchlistEntry
	skip := (page - 1) * limit
	err := r.conn.Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(skip).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, apperr.Transient("listing watchlist", err)
	}
	return rows, total, nil
}

// CountWatchlist returns the number of tokens a user watches.
func (r *Repository) CountWatchlist(userID string) (int, error) {
	var total int
	if err := r.conn.Model(&WatchlistEntry{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, apperr.Transient("counting watchlist", err)
	}
	return total, nil
}

// ContainsWatchlistEntry reports whether userID watches tokenAddress.
func (r *Repository) ContainsWatchlistEntry(userID, tokenAddress string) (bool, error) {
	var count int
	err := r.conn.Model(&WatchlistEntry{}).
		Where("user_id = ? AND token_address = ?", userID, strings.ToLower(tokenAddress)).
		Count(&count).Error
	if err != nil {
		return false, apperr.Transient("checking watchlist membership", err)
	}
	return count > 0, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique") || strings.Contains(strings.ToLower(err.Error()), "duplicate")
}
