package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/usezoracle/tba-be/internal/comments"
	"github.com/usezoracle/tba-be/internal/config"
	"github.com/usezoracle/tba-be/internal/db"
	"github.com/usezoracle/tba-be/internal/kv"
	"github.com/usezoracle/tba-be/internal/launchpad"
	"github.com/usezoracle/tba-be/internal/metrics"
	"github.com/usezoracle/tba-be/internal/reactions"
	"github.com/usezoracle/tba-be/internal/scanner"
	"github.com/usezoracle/tba-be/internal/tokenrepo"
	"github.com/usezoracle/tba-be/internal/watchlist"
)

// Server wires every engine behind the spec.md §6 HTTP surface. It holds no
// business logic of its own beyond request decoding, validation, and
// envelope formatting — the design note in spec.md §9 ("explicit value
// objects, single envelope middleware").
type Server struct {
	watchlist  *watchlist.Engine
	comments   *comments.Engine
	reactions  *reactions.Engine
	tokens     *tokenrepo.Repository
	scanner    *scanner.Scanner
	launchpad  *launchpad.Ingestor
	kv         *kv.Gateway
	dbRepo     *db.Repository
	limiter    *rateLimiter
	corsOrigins []string
}

func NewServer(
	watchlistEngine *watchlist.Engine,
	commentsEngine *comments.Engine,
	reactionsEngine *reactions.Engine,
	tokens *tokenrepo.Repository,
	sc *scanner.Scanner,
	launchpadIngestor *launchpad.Ingestor,
	gw *kv.Gateway,
	dbRepo *db.Repository,
	cfg *config.Config,
) *Server {
	return &Server{
		watchlist:   watchlistEngine,
		comments:    commentsEngine,
		reactions:   reactionsEngine,
		tokens:      tokens,
		scanner:     sc,
		launchpad:   launchpadIngestor,
		kv:          gw,
		dbRepo:      dbRepo,
		limiter:     newRateLimiter(cfg.RateLimit),
		corsOrigins: cfg.CORSOrigins,
	}
}

// Handler builds the full middleware-wrapped router: CORS, then rate
// limiting, around the httprouter route table.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()

	router.POST("/api/v1/watchlist/add", s.handleWatchlistAdd)
	router.DELETE("/api/v1/watchlist/remove", s.handleWatchlistRemove)
	router.GET("/api/v1/watchlist/get", s.handleWatchlistGet)
	router.GET("/api/v1/watchlist/check/:wallet/:token", s.handleWatchlistCheck)
	router.GET("/api/v1/watchlist/count/:wallet", s.handleWatchlistCount)

	router.POST("/api/v1/comments", s.handleCommentCreate)
	router.GET("/api/v1/comments/stream/:tokenAddress", s.handleCommentStream)
	router.GET("/api/v1/comments/:tokenAddress", s.handleCommentList)

	router.POST("/api/v1/emoji/react", s.handleReactionCreate)
	router.GET("/api/v1/emoji/stream/:tokenAddress", s.handleReactionStream)
	router.GET("/api/v1/emoji/:tokenAddress", s.handleReactionCounts)

	router.GET("/api/v1/new-tokens/tokens/stream", s.handleLaunchpadStream)
	router.GET("/api/v1/new-tokens/tokens", s.handleLaunchpadList)

	router.GET("/api/v1/tokens", s.handleTokensAll)
	router.GET("/api/v1/tokens/zora", s.handleTokensZora)
	router.GET("/api/v1/tokens/tba", s.handleTokensTba)
	router.GET("/api/v1/tokens/metadata", s.handleTokensMetadata)
	router.POST("/api/v1/tokens/scan", s.handleTokensScan)

	router.GET("/api/v1/health", s.handleHealth)
	router.GET("/api/v1/health/detailed", s.handleHealthDetailed)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	})

	return corsMiddleware.Handler(s.limiter.middleware(router))
}
