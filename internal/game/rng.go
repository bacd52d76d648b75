package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"sync"

	"golang.org/x/exp/rand"
)

// Rand 游戏随机源
// 所有开奖函数都通过本接口取随机数，测试时可注入固定序列验证赔付规则
type Rand interface {
	// Float64 返回 [0,1) 均匀分布
	Float64() float64
	// Intn 返回 [0,n) 均匀分布
	Intn(n int) int
}

// lockedRand 并发安全包装，x/exp/rand 的 *Rand 本身不可并发使用
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewRand 返回以加密随机数播种的默认随机源，可跨 goroutine 共享
// 种子来自 crypto/rand，序列本身使用 x/exp/rand（PCG）生成
func NewRand() Rand {
	var seed uint64
	var b [8]byte
	if _, err := crand.Read(b[:]); err == nil {
		seed = binary.LittleEndian.Uint64(b[:])
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}
