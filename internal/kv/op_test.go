package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpBuildersNameTheirPipelineCommand(t *testing.T) {
	hget, _ := HGetOp("emoji:0xabc", "like")
	hincr, _ := HIncrByOp("emoji:0xabc", "like", 1)
	hgetall, _ := HGetAllOp("emoji:0xabc")

	assert.Equal(t, "hget:emoji:0xabc", hget.Name)
	assert.Equal(t, "hincrBy:emoji:0xabc", hincr.Name)
	assert.Equal(t, "hgetAll:emoji:0xabc", hgetall.Name)
	assert.Equal(t, "lpush:comments:0xabc:list", LPushOp("comments:0xabc:list", "payload").Name)
	assert.Equal(t, "ltrim:comments:0xabc:list", LTrimOp("comments:0xabc:list", 0, 49).Name)
	assert.Equal(t, "sadd:watchlist:0xabc", SAddOp("watchlist:0xabc", "0xdef").Name)
	assert.Equal(t, "srem:watchlist:0xabc", SRemOp("watchlist:0xabc", "0xdef").Name)
}

func TestOpBuildersProduceNonNilFn(t *testing.T) {
	hget, _ := HGetOp("k", "f")
	hincr, _ := HIncrByOp("k", "f", 1)
	hgetall, _ := HGetAllOp("k")

	ops := []Op{
		hget,
		hincr,
		hgetall,
		LPushOp("k", "v"),
		LTrimOp("k", 0, 1),
		SAddOp("k", "m"),
		SRemOp("k", "m"),
	}
	for _, op := range ops {
		assert.NotNil(t, op.Fn, "%s must carry a pipeline function", op.Name)
	}
}

func TestOpBuilderResultFuncsAreNotNil(t *testing.T) {
	_, hgetResult := HGetOp("k", "f")
	_, hincrResult := HIncrByOp("k", "f", 1)
	_, hgetallResult := HGetAllOp("k")

	assert.NotNil(t, hgetResult)
	assert.NotNil(t, hincrResult)
	assert.NotNil(t, hgetallResult)
}
