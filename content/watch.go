package content

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long a file must stay quiet before its change is reported.
const Debounce = 100 * time.Millisecond

// Watcher reports changed level, manifest and rule files. Bursts of writes
// to one file collapse into a single event.
type Watcher struct {
	watcher *fsnotify.Watcher
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher: w,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher and closes Events and Errors.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Events)
		close(w.Errors)
	})
	return err
}

// firing is a debounce timer expiring for name. seq tells a stale firing,
// one whose timer was superseded while its send was pending, from the live one.
type firing struct {
	name string
	seq  uint64
}

type debounceEntry struct {
	timer *time.Timer
	seq   uint64
}

// debouncer collapses touches of one name into a single firing once the name
// has been quiet for delay. touch and accept must be called from one goroutine.
type debouncer struct {
	delay   time.Duration
	fire    chan firing
	stop    <-chan struct{}
	pending map[string]*debounceEntry
	seq     uint64
}

func newDebouncer(delay time.Duration, stop <-chan struct{}) *debouncer {
	return &debouncer{
		delay:   delay,
		fire:    make(chan firing),
		stop:    stop,
		pending: make(map[string]*debounceEntry),
	}
}

func (d *debouncer) touch(name string) {
	if e, ok := d.pending[name]; ok && e.timer.Stop() {
		e.timer.Reset(d.delay)
		return
	}
	// Either nothing is pending or the old timer already fired and its
	// firing is in flight; a new seq makes that firing stale.
	d.seq++
	f := firing{name: name, seq: d.seq}
	t := time.AfterFunc(d.delay, func() {
		select {
		case d.fire <- f:
		case <-d.stop:
		}
	})
	d.pending[name] = &debounceEntry{timer: t, seq: f.seq}
}

// accept reports whether f is the live firing for its name and clears it.
func (d *debouncer) accept(f firing) bool {
	e, ok := d.pending[f.name]
	if !ok || e.seq != f.seq {
		return false
	}
	delete(d.pending, f.name)
	return true
}

func (d *debouncer) close() {
	for _, e := range d.pending {
		e.timer.Stop()
	}
}

func (w *Watcher) run() {
	defer close(w.done)

	d := newDebouncer(Debounce, w.closeCh)
	defer d.close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isContentFile(event.Name) {
				continue
			}
			d.touch(event.Name)
		case f := <-d.fire:
			if !d.accept(f) {
				continue
			}
			select {
			case w.Events <- f.name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

func isContentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".tengo":
		return true
	}
	return false
}
