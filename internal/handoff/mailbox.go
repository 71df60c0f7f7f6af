package handoff

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/petems/whisper-dictate/internal/audio"
)

const (
	// PayloadName holds the pending utterance. Its presence means
	// "available", its absence means "slot free".
	PayloadName = "out.wav"
	// ReadyName marks that calibration is done.
	ReadyName = "ready_flag"

	partialSuffix = ".a"
)

var errWatcherClosed = errors.New("handoff: mailbox watcher closed")

var _ Channel = (*Mailbox)(nil)

// Mailbox is the cross-process Channel. Producer and consumer share only a
// directory. Payloads are written under a temporary name and renamed into
// place, so Take never sees a partial file. Waiting is driven by directory
// change notifications.
//
// The protocol assumes one producer process and one consumer process;
// concurrent callers within a process are serialized per Mailbox.
type Mailbox struct {
	dir       string
	frameSize int

	publishMu sync.Mutex
	takeMu    sync.Mutex
}

// NewMailbox uses dir, which must already exist. frameSize restores the
// frame count of decoded utterances.
func NewMailbox(dir string, frameSize int) (*Mailbox, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("mailbox dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mailbox dir %s is not a directory", dir)
	}
	return &Mailbox{dir: dir, frameSize: frameSize}, nil
}

func (m *Mailbox) Dir() string {
	return m.dir
}

func (m *Mailbox) payloadPath() string {
	return filepath.Join(m.dir, PayloadName)
}

func (m *Mailbox) readyPath() string {
	return filepath.Join(m.dir, ReadyName)
}

func (m *Mailbox) Publish(ctx context.Context, u *audio.Utterance) error {
	if u == nil {
		return ErrNilUtterance
	}

	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	payload := m.payloadPath()
	if err := m.waitFor(ctx, func() (bool, error) {
		present, err := exists(payload)
		return !present, err
	}); err != nil {
		return err
	}

	partial := payload + partialSuffix
	f, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("create payload: %w", err)
	}
	if err := audio.EncodeWAV(f, u); err != nil {
		f.Close()
		os.Remove(partial)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(partial)
		return fmt.Errorf("close payload: %w", err)
	}
	if err := os.Rename(partial, payload); err != nil {
		os.Remove(partial)
		return fmt.Errorf("publish payload: %w", err)
	}
	return nil
}

func (m *Mailbox) Take(ctx context.Context) (*audio.Utterance, error) {
	m.takeMu.Lock()
	defer m.takeMu.Unlock()

	payload := m.payloadPath()
	if err := m.waitFor(ctx, func() (bool, error) {
		return exists(payload)
	}); err != nil {
		return nil, err
	}

	f, err := os.Open(payload)
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}
	u, err := audio.DecodeWAV(f, m.frameSize)
	f.Close()
	if err != nil {
		if rmErr := os.Remove(payload); rmErr != nil {
			return nil, fmt.Errorf("release payload: %w", rmErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}

	// Removing the payload is what frees the slot for the producer.
	if err := os.Remove(payload); err != nil {
		return nil, fmt.Errorf("release payload: %w", err)
	}
	return u, nil
}

func (m *Mailbox) SignalReady() error {
	f, err := os.OpenFile(m.readyPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyReady
		}
		return fmt.Errorf("create ready marker: %w", err)
	}
	return f.Close()
}

func (m *Mailbox) WaitReady(ctx context.Context) error {
	ready := m.readyPath()
	return m.waitFor(ctx, func() (bool, error) {
		return exists(ready)
	})
}

// waitFor blocks until done reports true. The watch is registered before the
// first check, so a change between the check and the wait is not lost.
func (m *Mailbox) waitFor(ctx context.Context, done func() (bool, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch mailbox: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.dir); err != nil {
		return fmt.Errorf("watch mailbox %s: %w", m.dir, err)
	}

	for {
		ok, err := done()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, open := <-watcher.Events:
			if !open {
				return errWatcherClosed
			}
		case err, open := <-watcher.Errors:
			if !open {
				return errWatcherClosed
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				continue
			}
			return fmt.Errorf("watch mailbox: %w", err)
		}
	}
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
