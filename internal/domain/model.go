// Package domain holds the shared data model from spec.md §3: PoolKey,
// PoolId, TokenRecord, TokenPartition, and the AppType/CoinType enums that
// flow between the Pool Processor, Token Scanner, and Token Repository.
package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AppType classifies whether a token is the "primary" side of a pool or
// paired against a configured base currency — "ZORA"/"TBA" in the original
// source, per spec.md §3.
type AppType string

const (
	AppTypePrimary AppType = "Primary"
	AppTypePaired  AppType = "Paired"
)

// CoinType is determined by matching a pool's hook address against the
// configured hook classifier map (spec.md §3, §4.6 step 5).
type CoinType string

// PoolKey is the immutable tuple identifying a pool before it is persisted.
// Invariant: Currency0 < Currency1 as unsigned 160-bit integers.
type PoolKey struct {
	Currency0      common.Address
	Currency1      common.Address
	FeeTier        uint32
	TickSpacing    int32
	Hook           common.Address
	DiscoveryBlock uint64
}

// Normalize returns k with Currency0/Currency1 ordered so Currency0 is the
// numerically smaller address, per the PoolKey invariant.
func (k PoolKey) Normalize() PoolKey {
	if addressLess(k.Currency1, k.Currency0) {
		k.Currency0, k.Currency1 = k.Currency1, k.Currency0
	}
	return k
}

func addressLess(a, b common.Address) bool {
	for i := 0; i < common.AddressLength; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// PoolID is the deterministic 32-byte digest of a pool's identity tuple
// (currency0, currency1, feeTier, tickSpacing, hook).
type PoolID [32]byte

// ComputePoolID derives the deterministic digest used as the primary key
// for token records, per spec.md §3.
func ComputePoolID(k PoolKey) PoolID {
	h := sha256.New()
	h.Write(k.Currency0.Bytes())
	h.Write(k.Currency1.Bytes())

	var feeBuf [4]byte
	binary.BigEndian.PutUint32(feeBuf[:], k.FeeTier)
	h.Write(feeBuf[:])

	var tsBuf [4]byte
	binary.BigEndian.PutUint32(tsBuf[:], uint32(k.TickSpacing))
	h.Write(tsBuf[:])

	h.Write(k.Hook.Bytes())

	var out PoolID
	copy(out[:], h.Sum(nil))
	return out
}

func (id PoolID) Hex() string {
	return common.Bytes2Hex(id[:])
}

// TokenRecord is the classified, priced result produced per pool by the
// Pool Processor (spec.md §3).
type TokenRecord struct {
	PoolID              PoolID    `json:"poolId"`
	AppType             AppType   `json:"appType"`
	CoinType            CoinType  `json:"coinType"`
	TokenAddress        string    `json:"tokenAddress"`
	TokenName           string    `json:"tokenName"`
	TokenSymbol         string    `json:"tokenSymbol"`
	TokenDecimals       uint8     `json:"tokenDecimals"`
	CurrentTick         int32     `json:"currentTick"`
	SqrtPriceX96        string    `json:"sqrtPriceX96"`
	HumanPrice          string    `json:"humanPrice"`
	DiscoveryBlock      uint64    `json:"discoveryBlock"`
	DiscoveryTimestamp  uint64    `json:"discoveryTimestamp"`
}

// PartitionMeta summarizes a TokenPartition.
type PartitionMeta struct {
	LastUpdatedAt time.Time        `json:"lastUpdatedAt"`
	TotalTokens   int              `json:"totalTokens"`
	ByCoinType    map[CoinType]int `json:"byCoinType"`
}

// TokenPartition is a named container of token records — "Primary" or
// "Paired" per spec.md §3.
type TokenPartition struct {
	Name    string          `json:"name"`
	Records []TokenRecord   `json:"records"`
	Meta    PartitionMeta   `json:"meta"`
}

// CommentStatus mirrors the Comment Engine's stub/persisted lifecycle.
type CommentStatus string

const (
	CommentStatusProcessing CommentStatus = "Processing"
	CommentStatusPersisted  CommentStatus = "Persisted"
)

// Comment is the API-facing shape of a comment (spec.md §3).
type Comment struct {
	ID            string        `json:"id"`
	TokenAddress  string        `json:"tokenAddress"`
	UserID        string        `json:"userId"`
	WalletAddress string        `json:"walletAddress"`
	Content       string        `json:"content"`
	CreatedAt     time.Time     `json:"createdAt"`
	Status        CommentStatus `json:"status"`
}

// ReactionKind enumerates the five accepted emoji reactions.
type ReactionKind string

const (
	ReactionLike  ReactionKind = "like"
	ReactionLove  ReactionKind = "love"
	ReactionLaugh ReactionKind = "laugh"
	ReactionWow   ReactionKind = "wow"
	ReactionSad   ReactionKind = "sad"
)

// ValidReactionKinds lists every accepted ReactionKind, in a stable order.
var ValidReactionKinds = []ReactionKind{ReactionLike, ReactionLove, ReactionLaugh, ReactionWow, ReactionSad}

// IsValidReactionKind reports whether k is one of the five accepted kinds.
func IsValidReactionKind(k ReactionKind) bool {
	for _, v := range ValidReactionKinds {
		if v == k {
			return true
		}
	}
	return false
}

// ReactionCounters maps each ReactionKind to a non-negative count, defaulting
// absent fields to 0 (spec.md §3).
type ReactionCounters map[ReactionKind]int64

// NormalizedReactionCounters returns a copy of raw with every
// ValidReactionKinds entry present, defaulting to 0.
func NormalizedReactionCounters(raw map[string]string) ReactionCounters {
	out := make(ReactionCounters, len(ValidReactionKinds))
	for _, k := range ValidReactionKinds {
		out[k] = 0
	}
	for k, v := range raw {
		kind := ReactionKind(k)
		if !IsValidReactionKind(kind) {
			continue
		}
		var n int64
		for _, c := range v {
			if c < '0' || c > '9' {
				n = 0
				break
			}
			n = n*10 + int64(c-'0')
		}
		out[kind] = n
	}
	return out
}

// WatchlistEntry is the API-facing shape of a watched token (spec.md §3).
type WatchlistEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	TokenAddress string    `json:"tokenAddress"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Pagination is the envelope spec.md §6 requires for list endpoints.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
	Skip       int `json:"skip"`
}

// NewPagination computes TotalPages/Skip for a (page, limit, total) triple.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: totalPages, Skip: (page - 1) * limit}
}

// LaunchpadToken is the normalized external-feed record (spec.md §3).
type LaunchpadToken struct {
	Address           string    `json:"address"`
	Name              string    `json:"name"`
	Symbol            string    `json:"symbol"`
	Network           string    `json:"network"`
	Protocol          string    `json:"protocol"`
	NetworkID         string    `json:"networkId"`
	CreatedAt         time.Time `json:"createdAt"`
	PriceUSD          *float64  `json:"priceUsd,omitempty"`
	MarketCap         *float64  `json:"marketCap,omitempty"`
	Volume24          *float64  `json:"volume24,omitempty"`
	Holders           *int64    `json:"holders,omitempty"`
	ImageURL          *string   `json:"imageUrl,omitempty"`
	GraduationPercent *float64  `json:"graduationPercent,omitempty"`
	LaunchpadProtocol *string   `json:"launchpadProtocol,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// ScanResult summarizes one Token Scanner cycle (spec.md §4.7 step 8).
type ScanResult struct {
	BlocksScanned   uint64    `json:"blocksScanned"`
	FromBlock       uint64    `json:"fromBlock"`
	ToBlock         uint64    `json:"toBlock"`
	PoolsDiscovered int       `json:"poolsDiscovered"`
	TokensAdded     int       `json:"tokensAdded"`
	ZoraTokens      int       `json:"zoraTokens"`
	TbaTokens       int       `json:"tbaTokens"`
	DurationMs      int64     `json:"durationMs"`
	Timestamp       time.Time `json:"timestamp"`
}
