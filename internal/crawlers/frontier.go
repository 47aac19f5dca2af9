package crawlers

import (
	"github.com/antigloss/go/concurrent/container/queue"
)

// Frontier 广度优先遍历使用的待访问队列
// 职责: 先进先出地提供下一个页面URL,并记录已经入队过的"下一页"链接
//
// 只属于一次遍历调用,已见集合不做并发保护
type Frontier struct {
	// 待处理URL (FIFO)
	pending *queue.LockfreeQueue
	size    int

	// 已入队的下一页URL集合
	seen map[string]struct{}
}

// NewFrontier 用起始URL创建队列
// 起始URL不写入已见集合,之后被发现为下一页时仍会入队一次
func NewFrontier(start []string) *Frontier {
	f := &Frontier{
		pending: queue.NewLockfreeQueue(),
		seen:    make(map[string]struct{}),
	}
	for _, u := range start {
		f.enqueue(u)
	}
	return f
}

func (f *Frontier) enqueue(urlStr string) {
	f.pending.Push(urlStr)
	f.size++
}

// Push 将下一页URL加入队尾
// URL已见过时返回false,不重复入队
func (f *Frontier) Push(urlStr string) bool {
	if _, ok := f.seen[urlStr]; ok {
		return false
	}
	f.seen[urlStr] = struct{}{}
	f.enqueue(urlStr)
	return true
}

// Pop 取出队首URL,队列为空时返回false
func (f *Frontier) Pop() (string, bool) {
	v := f.pending.Pop()
	if v == nil {
		return "", false
	}
	f.size--
	next, ok := v.(string)
	return next, ok
}

// IsSeen 检查URL是否已作为下一页入队过
func (f *Frontier) IsSeen(urlStr string) bool {
	_, ok := f.seen[urlStr]
	return ok
}

// PendingCount 返回当前待处理URL数量
func (f *Frontier) PendingCount() int {
	return f.size
}
