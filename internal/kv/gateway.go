// Package kv implements the KV/Stream Gateway (C10): a typed wrapper over a
// Redis-semantics store, grounded on the teacher's go-redis/redis/v7
// dependency (go.mod) and on the dual-connection discipline the teacher
// applies elsewhere between a command path and a long-lived streaming path
// (e.g. networks/p2p's separate read/write loops) — generalized here into
// one command connection plus one dedicated subscribe connection, per
// spec.md §5 ("Subscribe/command separation").
package kv

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/log"
)

var logger = log.NewModuleLogger(log.KVGateway)

// DefaultTimeout is the default per-operation timeout (spec.md §5: "KV
// operations default to 5s").
const DefaultTimeout = 5 * time.Second

// Gateway wraps two *redis.Client connections: cmdConn for all commands and
// publish calls, subConn dedicated to Subscribe/PSubscribe. Re-entering
// subscribe mode on cmdConn is forbidden by construction — Subscribe always
// goes through subConn.
type Gateway struct {
	cmdConn *redis.Client
	subConn *redis.Client

	mu      sync.Mutex
	shared  map[string]*sharedSub
}

// sharedSub multiplexes one upstream redis.PubSub subscription across N
// in-process listeners, so the process never opens more than one Redis-level
// subscription per channel regardless of how many SSE clients listen to it.
type sharedSub struct {
	ps        *redis.PubSub
	listeners map[int]func(string)
	nextID    int
}

// New dials two independent connections to the same Redis URL.
func New(url string) (*Gateway, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperr.Transient("parsing kv url", err)
	}
	opt.ReadTimeout = DefaultTimeout
	opt.WriteTimeout = DefaultTimeout
	cmdConn := redis.NewClient(opt)
	subConn := redis.NewClient(opt)
	if err := cmdConn.Ping().Err(); err != nil {
		return nil, apperr.Transient("connecting kv command client", err)
	}
	if err := subConn.Ping().Err(); err != nil {
		return nil, apperr.Transient("connecting kv subscribe client", err)
	}
	return &Gateway{
		cmdConn: cmdConn,
		subConn: subConn,
		shared:  make(map[string]*sharedSub),
	}, nil
}

// Close releases both underlying connections and any open subscriptions.
func (g *Gateway) Close() error {
	g.mu.Lock()
	for ch, s := range g.shared {
		_ = s.ps.Close()
		delete(g.shared, ch)
	}
	g.mu.Unlock()
	err1 := g.cmdConn.Close()
	err2 := g.subConn.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func transientErr(op string, err error) error {
	if err == nil || err == redis.Nil {
		return nil
	}
	return apperr.Transient(op, err)
}

// SetJSON marshals value and SETs it under key, with an optional TTL (0
// means no expiry).
func (g *Gateway) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return apperr.Validation("marshaling value for " + key + ": " + err.Error())
	}
	return transientErr("setJSON:"+key, g.cmdConn.Set(key, b, ttl).Err())
}

// GetJSON unmarshals the stored value into out. ok is false on a cache miss
// (absent key), not an error.
func (g *Gateway) GetJSON(ctx context.Context, key string, out any) (ok bool, err error) {
	raw, err := g.cmdConn.Get(key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, apperr.Transient("getJSON:"+key, err)
	}
	if uerr := json.Unmarshal([]byte(raw), out); uerr != nil {
		return false, apperr.Transient("unmarshal getJSON:"+key, uerr)
	}
	return true, nil
}

// Ping verifies the command connection is reachable, used by the
// /health/detailed endpoint.
func (g *Gateway) Ping(ctx context.Context) error {
	return transientErr("ping", g.cmdConn.Ping().Err())
}

func (g *Gateway) Del(ctx context.Context, key string) error {
	return transientErr("del:"+key, g.cmdConn.Del(key).Err())
}

func (g *Gateway) Exists(ctx context.Context, key string) (bool, error) {
	n, err := g.cmdConn.Exists(key).Result()
	if err != nil {
		return false, apperr.Transient("exists:"+key, err)
	}
	return n > 0, nil
}

func (g *Gateway) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := g.cmdConn.TTL(key).Result()
	if err != nil {
		return 0, apperr.Transient("ttl:"+key, err)
	}
	return d, nil
}

// Expire sets key's remaining lifetime to ttl, overwriting any previous TTL.
func (g *Gateway) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return transientErr("expire:"+key, g.cmdConn.Expire(key, ttl).Err())
}

func (g *Gateway) HSet(ctx context.Context, key, field, value string) error {
	return transientErr("hset:"+key, g.cmdConn.HSet(key, field, value).Err())
}

func (g *Gateway) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := g.cmdConn.HGetAll(key).Result()
	if err != nil {
		return nil, apperr.Transient("hgetAll:"+key, err)
	}
	return m, nil
}

func (g *Gateway) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := g.cmdConn.HGet(key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Transient("hget:"+key, err)
	}
	return v, true, nil
}

// HIncrBy atomically increments field on key by delta and returns the new
// value.
func (g *Gateway) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	n, err := g.cmdConn.HIncrBy(key, field, delta).Result()
	if err != nil {
		return 0, apperr.Transient("hincrBy:"+key, err)
	}
	return n, nil
}

func (g *Gateway) LPush(ctx context.Context, key string, value string) error {
	return transientErr("lpush:"+key, g.cmdConn.LPush(key, value).Err())
}

func (g *Gateway) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := g.cmdConn.LRange(key, start, stop).Result()
	if err != nil {
		return nil, apperr.Transient("lrange:"+key, err)
	}
	return vals, nil
}

func (g *Gateway) LTrim(ctx context.Context, key string, start, stop int64) error {
	return transientErr("ltrim:"+key, g.cmdConn.LTrim(key, start, stop).Err())
}

func (g *Gateway) LLen(ctx context.Context, key string) (int64, error) {
	n, err := g.cmdConn.LLen(key).Result()
	if err != nil {
		return 0, apperr.Transient("llen:"+key, err)
	}
	return n, nil
}

func (g *Gateway) SAdd(ctx context.Context, key, member string) error {
	return transientErr("sadd:"+key, g.cmdConn.SAdd(key, member).Err())
}

func (g *Gateway) SRem(ctx context.Context, key, member string) error {
	return transientErr("srem:"+key, g.cmdConn.SRem(key, member).Err())
}

func (g *Gateway) SMembers(ctx context.Context, key string) ([]string, error) {
	vals, err := g.cmdConn.SMembers(key).Result()
	if err != nil {
		return nil, apperr.Transient("smembers:"+key, err)
	}
	return vals, nil
}

func (g *Gateway) Publish(ctx context.Context, channel string, message string) error {
	return transientErr("publish:"+channel, g.cmdConn.Publish(channel, message).Err())
}

// Op is one operation in a Multi pipeline.
type Op struct {
	Name string
	Fn   func(pipe redis.Pipeliner) error
}

// HGetOp, HIncrByOp, HGetAllOp, LPushOp, LTrimOp, SAddOp, SRemOp build
// pipeline ops for the transactional shapes described in spec.md §5
// (reaction triple, comment pair, watchlist pipeline). HGetOp, HIncrByOp,
// and HGetAllOp additionally return a result func valid only after the
// enclosing Multi call returns, since pipelined commands aren't populated
// until the transaction executes.
func HGetOp(key, field string) (op Op, result func() (value string, ok bool, err error)) {
	var cmd *redis.StringCmd
	op = Op{Name: "hget:" + key, Fn: func(pipe redis.Pipeliner) error {
		cmd = pipe.HGet(key, field)
		return nil
	}}
	result = func() (string, bool, error) {
		v, err := cmd.Result()
		if err == redis.Nil {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return v, true, nil
	}
	return op, result
}

func HIncrByOp(key, field string, delta int64) (op Op, result func() (int64, error)) {
	var cmd *redis.IntCmd
	op = Op{Name: "hincrBy:" + key, Fn: func(pipe redis.Pipeliner) error {
		cmd = pipe.HIncrBy(key, field, delta)
		return nil
	}}
	result = func() (int64, error) { return cmd.Result() }
	return op, result
}

func HGetAllOp(key string) (op Op, result func() (map[string]string, error)) {
	var cmd *redis.StringStringMapCmd
	op = Op{Name: "hgetAll:" + key, Fn: func(pipe redis.Pipeliner) error {
		cmd = pipe.HGetAll(key)
		return nil
	}}
	result = func() (map[string]string, error) { return cmd.Result() }
	return op, result
}

func LPushOp(key, value string) Op {
	return Op{Name: "lpush:" + key, Fn: func(pipe redis.Pipeliner) error {
		return pipe.LPush(key, value).Err()
	}}
}

func LTrimOp(key string, start, stop int64) Op {
	return Op{Name: "ltrim:" + key, Fn: func(pipe redis.Pipeliner) error {
		return pipe.LTrim(key, start, stop).Err()
	}}
}

func SAddOp(key, member string) Op {
	return Op{Name: "sadd:" + key, Fn: func(pipe redis.Pipeliner) error {
		return pipe.SAdd(key, member).Err()
	}}
}

func SRemOp(key, member string) Op {
	return Op{Name: "srem:" + key, Fn: func(pipe redis.Pipeliner) error {
		return pipe.SRem(key, member).Err()
	}}
}

// Multi runs ops as one pipelined, atomic transaction (MULTI/EXEC) against
// the command connection.
func (g *Gateway) Multi(ctx context.Context, ops []Op) error {
	_, err := g.cmdConn.TxPipelined(func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			if err := op.Fn(pipe); err != nil {
				return err
			}
		}
		return nil
	})
	return transientErr("multi", err)
}

// Subscription is an in-process handle onto one listener within a shared
// upstream Redis subscription for a channel.
type Subscription struct {
	gw      *Gateway
	channel string
	id      int
}

// Subscribe joins the shared subscription for channel (opening the
// underlying Redis-level subscription on first use) and delivers each
// message's payload to onMessage until Unsubscribe is called. Safe to call
// concurrently; at most one Redis-level SUBSCRIBE is issued per channel
// regardless of how many in-process listeners join.
func (g *Gateway) Subscribe(ctx context.Context, channel string, onMessage func(payload string)) (*Subscription, error) {
	g.mu.Lock()
	s, exists := g.shared[channel]
	if !exists {
		s = &sharedSub{ps: g.subConn.Subscribe(channel), listeners: make(map[int]func(string))}
		g.shared[channel] = s
		go g.pump(channel, s)
	}
	s.nextID++
	id := s.nextID
	s.listeners[id] = onMessage
	g.mu.Unlock()

	return &Subscription{gw: g, channel: channel, id: id}, nil
}

func (g *Gateway) pump(channel string, s *sharedSub) {
	for msg := range s.ps.Channel() {
		g.mu.Lock()
		fns := make([]func(string), 0, len(s.listeners))
		for _, fn := range s.listeners {
			fns = append(fns, fn)
		}
		g.mu.Unlock()
		for _, fn := range fns {
			fn(msg.Payload)
		}
	}
}

// Unsubscribe removes this listener. When the last in-process listener for
// the channel is removed, the underlying Redis-level subscription is closed
// (spec.md §5's "SSE fan-out" requirement).
func (s *Subscription) Unsubscribe() error {
	g := s.gw
	g.mu.Lock()
	defer g.mu.Unlock()
	shared, ok := g.shared[s.channel]
	if !ok {
		return nil
	}
	delete(shared.listeners, s.id)
	if len(shared.listeners) > 0 {
		return nil
	}
	delete(g.shared, s.channel)
	return shared.ps.Close()
}

// ListenerCount reports how many in-process listeners are currently
// registered for channel (0 if none, including if never subscribed).
// Exposed primarily for tests asserting the "release when empty" invariant.
func (g *Gateway) ListenerCount(channel string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.shared[channel]
	if !ok {
		return 0
	}
	return len(s.listeners)
}

var _ = logger
