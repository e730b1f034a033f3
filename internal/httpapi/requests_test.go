package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usezoracle/tba-be/internal/apperr"
)

func jsonRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, target, strings.NewReader(body))
}

func TestParseWatchlistTokensRequestValid(t *testing.T) {
	body := `{"walletAddress":"0x1234567890123456789012345678901234567890","tokenAddresses":["0xabc"]}`
	req, err := parseWatchlistTokensRequest(jsonRequest(t, http.MethodPost, "/", body))
	require.NoError(t, err)
	assert.Equal(t, "0x1234567890123456789012345678901234567890", req.WalletAddress)
	assert.Len(t, req.TokenAddresses, 1)
}

func TestParseWatchlistTokensRequestBadWallet(t *testing.T) {
	body := `{"walletAddress":"not-a-wallet","tokenAddresses":["0xabc"]}`
	_, err := parseWatchlistTokensRequest(jsonRequest(t, http.MethodPost, "/", body))
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, err.Error(), "walletAddress")
}

func TestParseWatchlistTokensRequestTooManyTokens(t *testing.T) {
	tokens := make([]string, 51)
	for i := range tokens {
		tokens[i] = `"0xabc"`
	}
	body := `{"walletAddress":"0x1234567890123456789012345678901234567890","tokenAddresses":[` + strings.Join(tokens, ",") + `]}`
	_, err := parseWatchlistTokensRequest(jsonRequest(t, http.MethodPost, "/", body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokenAddresses")
}

func TestParseWatchlistTokensRequestJoinsMultipleProblems(t *testing.T) {
	body := `{"walletAddress":"bad","tokenAddresses":[]}`
	_, err := parseWatchlistTokensRequest(jsonRequest(t, http.MethodPost, "/", body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "walletAddress")
	assert.Contains(t, err.Error(), "tokenAddresses")
	assert.Contains(t, err.Error(), ";")
}

func TestParseWatchlistTokensRequestMalformedBody(t *testing.T) {
	_, err := parseWatchlistTokensRequest(jsonRequest(t, http.MethodPost, "/", `{not json`))
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
}

func TestParseCommentCreateRequestRequiresTokenAddress(t *testing.T) {
	_, err := parseCommentCreateRequest(jsonRequest(t, http.MethodPost, "/", `{"walletAddress":"0xabc","content":"gm"}`))
	require.Error(t, err)

	req, err := parseCommentCreateRequest(jsonRequest(t, http.MethodPost, "/", `{"tokenAddress":"0xabc","content":"gm"}`))
	require.NoError(t, err)
	assert.Equal(t, "gm", req.Content)
}

func TestParseReactionRequestRequiresTokenAddress(t *testing.T) {
	_, err := parseReactionRequest(jsonRequest(t, http.MethodPost, "/", `{"emoji":"🔥"}`))
	require.Error(t, err)

	req, err := parseReactionRequest(jsonRequest(t, http.MethodPost, "/", `{"tokenAddress":"0xabc","emoji":"🔥","increment":1}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), req.Increment)
}

func TestPaginationDefaults(t *testing.T) {
	page, limit := pagination(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)
}

func TestPaginationClampsLimitAndPage(t *testing.T) {
	page, limit := pagination(httptest.NewRequest(http.MethodGet, "/?page=0&limit=500", nil))
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, limit)

	page, limit = pagination(httptest.NewRequest(http.MethodGet, "/?page=-3&limit=-5", nil))
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)
}

func TestPaginationParsesValidValues(t *testing.T) {
	page, limit := pagination(httptest.NewRequest(http.MethodGet, "/?page=3&limit=10", nil))
	assert.Equal(t, 3, page)
	assert.Equal(t, 10, limit)
}

func TestQueryIntFallsBackOnGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?n=not-a-number", nil)
	assert.Equal(t, 7, queryInt(req, "n", 7))
}

func TestLowerLowercasesAddress(t *testing.T) {
	assert.Equal(t, "0xabc", lower("0xABC"))
}
