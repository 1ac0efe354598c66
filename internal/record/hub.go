package record

import "sync"

// Hub 向订阅者广播快照。每个订阅通道容量为 1，慢消费者只会看到最新快照：
// 发布时若通道已满，先丢弃旧快照再写入。
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Record
	nextID int
	closed bool
}

// NewHub 创建空的广播器。
func NewHub() *Hub {
	return &Hub{subs: map[int]chan Record{}}
}

// Subscribe 注册订阅者，返回快照通道与取消函数；取消后通道关闭。
func (h *Hub) Subscribe() (<-chan Record, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		ch := make(chan Record)
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	ch := make(chan Record, 1)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish 向每个订阅者投递 snapshot 的独立副本。
func (h *Hub) Publish(snapshot Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		snap := snapshot.Clone()
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Count 返回当前订阅者数量。
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close 关闭所有订阅通道，之后的订阅得到已关闭的通道。
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
