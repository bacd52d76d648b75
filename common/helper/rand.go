package helper

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

var (
	randMu  sync.Mutex
	randSrc = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
)

// GenerateRandNum 返回 [min, max) 区间的随机整数
func GenerateRandNum(min, max int) int {
	if max <= min {
		return min
	}
	randMu.Lock()
	defer randMu.Unlock()
	return min + randSrc.Intn(max-min)
}
