package client

import (
	"context"
	"sync"

	"github.com/mmeshcher/gophershop/internal/model"
)

// hub рассылает смену пользователя всем подписчикам.
type hub struct {
	mu     sync.Mutex
	subs   map[int]chan *model.Identity
	nextID int
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan *model.Identity)}
}

func (h *hub) subscribe(ctx context.Context) <-chan *model.Identity {
	ch := make(chan *model.Identity, 8)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// publish не блокируется: медленный подписчик получает последнее значение вместо устаревших.
func (h *hub) publish(user *model.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		for {
			select {
			case ch <- user:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
