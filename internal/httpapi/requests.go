package httpapi

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/usezoracle/tba-be/internal/apperr"
)

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// decodeJSON decodes r's body into out, collapsing a malformed body into a
// single Validation error per spec.md §6's "validation errors collapse to a
// single joined message" rule.
func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		return apperr.Validation("invalid request body: " + err.Error())
	}
	return nil
}

// watchlistTokensRequest is the explicit value object behind both
// /watchlist/add and /watchlist/remove (spec.md §6, §9's "decorator-driven
// validation -> explicit value objects" design note).
type watchlistTokensRequest struct {
	WalletAddress  string   `json:"walletAddress"`
	TokenAddresses []string `json:"tokenAddresses"`
}

func parseWatchlistTokensRequest(r *http.Request) (watchlistTokensRequest, error) {
	var req watchlistTokensRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}

	var problems []string
	if !walletPattern.MatchString(req.WalletAddress) {
		problems = append(problems, "walletAddress must match ^0x[0-9a-fA-F]{40}$")
	}
	if len(req.TokenAddresses) == 0 || len(req.TokenAddresses) > 50 {
		problems = append(problems, "tokenAddresses must have between 1 and 50 entries")
	}
	if len(problems) > 0 {
		return req, apperr.Validation(strings.Join(problems, "; "))
	}
	return req, nil
}

type commentCreateRequest struct {
	TokenAddress  string `json:"tokenAddress"`
	WalletAddress string `json:"walletAddress"`
	Content       string `json:"content"`
}

func parseCommentCreateRequest(r *http.Request) (commentCreateRequest, error) {
	var req commentCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	if req.TokenAddress == "" {
		return req, apperr.Validation("tokenAddress is required")
	}
	return req, nil
}

type reactionRequest struct {
	TokenAddress string `json:"tokenAddress"`
	Emoji        string `json:"emoji"`
	Increment    int64  `json:"increment"`
}

func parseReactionRequest(r *http.Request) (reactionRequest, error) {
	var req reactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	if req.TokenAddress == "" {
		return req, apperr.Validation("tokenAddress is required")
	}
	return req, nil
}

// pagination parses page/limit query parameters with the defaults and
// clamping spec.md §8 requires: page>=1, limit in [1,100] default 20.
func pagination(r *http.Request) (page, limit int) {
	page = queryInt(r, "page", 1)
	limit = queryInt(r, "limit", 20)
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func lower(s string) string {
	return strings.ToLower(s)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
