package client

import (
	"context"
	"log"
	"time"
)

// Poller - фоновый опрос авторитетного состояния: страховка от
// потерянных или пришедших не по порядку realtime-событий.
// Пока контроллер занят мутацией, опрос пропускается, чтобы свежее
// локальное обновление не было затерто устаревшим снимком.
type Poller struct {
	controller *SyncController
	reload     func() error
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewPoller(controller *SyncController, reload func() error) *Poller {
	return &Poller{
		controller: controller,
		reload:     reload,
	}
}

// Start запускает цикл опроса. Интервал переспрашивается после каждого
// тика: секунда при свежей pending-заявке, иначе 30 секунд.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		timer := time.NewTimer(p.controller.NextPollInterval(time.Now()))
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if !p.controller.Busy() {
					if err := p.reload(); err != nil {
						log.Println("Poll reload failed:", err)
					}
				}
				timer.Reset(p.controller.NextPollInterval(time.Now()))
			}
		}
	}()
}

// Stop останавливает опрос и дожидается выхода горутины
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
}
