package kotlin

import "sync"

// Looper serializes callback delivery onto one goroutine, standing in for
// Android's main looper. Every platform callback and broadcast in this
// package is posted here, so application code sees the single-threaded
// delivery model real Android apps get.
type Looper struct {
	queue    chan func()
	done     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

// NewLooper creates a looper and starts its dispatch goroutine
func NewLooper() *Looper {
	l := &Looper{
		queue: make(chan func(), 256),
		done:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.loop()
	return l
}

func (l *Looper) loop() {
	defer l.wg.Done()
	for {
		select {
		case f := <-l.queue:
			f()
		case <-l.done:
			// Drain whatever was queued before quit
			for {
				select {
				case f := <-l.queue:
					f()
				default:
					return
				}
			}
		}
	}
}

// Post enqueues a callback for delivery on the looper goroutine.
// Posts after Quit are dropped.
func (l *Looper) Post(f func()) {
	select {
	case <-l.done:
	case l.queue <- f:
	}
}

// Quit stops the looper after draining queued callbacks. Idempotent.
func (l *Looper) Quit() {
	l.quitOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}
