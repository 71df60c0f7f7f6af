package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const pulseAppName = "whisper-dictate"

// pulseSource re-chunks the Pulse record callback into fixed-size frames.
type pulseSource struct {
	format Format
	client *pulse.Client
	stream *pulse.RecordStream

	frames chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	chunker frameChunker
	stopped bool
}

func openPulse(ctx context.Context, deviceID string, format Format) (Source, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	var source *pulse.Source
	if deviceID == "" {
		source, err = client.DefaultSource()
	} else {
		source, err = client.SourceByID(deviceID)
	}
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", deviceID, err)
	}

	p := &pulseSource{
		format:  format,
		client:  client,
		frames:  make(chan []byte, 64),
		stopCh:  make(chan struct{}),
		chunker: frameChunker{size: format.FrameBytes()},
	}

	writer := pulse.NewWriter(writerFunc(p.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(format.SampleRate),
		pulse.RecordBufferFragmentSize(uint32(format.FrameBytes())),
		pulse.RecordMediaName("whisper-dictate capture"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	p.stream = stream
	stream.Start()

	return p, nil
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(pulseAppName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

func (p *pulseSource) ReadFrame(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-p.stopCh:
		return Frame{}, ErrClosed
	case pcm := <-p.frames:
		return NewFrame(pcm), nil
	}
}

func (p *pulseSource) Close() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.stopCh)
	p.mu.Unlock()

	if p.stream != nil {
		p.stream.Stop()
		p.stream.Close()
	}
	p.client.Close()
	return nil
}

// onPCM receives raw Pulse buffers of arbitrary size.
func (p *pulseSource) onPCM(buffer []byte) (int, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return 0, io.EOF
	}
	frames := p.chunker.push(buffer)
	p.mu.Unlock()

	for _, frame := range frames {
		select {
		case <-p.stopCh:
			return 0, io.EOF
		case p.frames <- frame:
		}
	}
	return len(buffer), nil
}

func listPulseDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	sources, err := client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sources))
	for _, s := range sources {
		devices = append(devices, Device{
			ID:      s.ID(),
			Name:    s.Name(),
			Default: s.ID() == defaultSource.ID(),
		})
	}
	return devices, nil
}

// frameChunker accumulates bytes and cuts them into size-byte frames.
type frameChunker struct {
	size    int
	pending []byte
}

func (c *frameChunker) push(buf []byte) [][]byte {
	c.pending = append(c.pending, buf...)
	var frames [][]byte
	for len(c.pending) >= c.size {
		frame := make([]byte, c.size)
		copy(frame, c.pending[:c.size])
		c.pending = c.pending[c.size:]
		frames = append(frames, frame)
	}
	return frames
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
