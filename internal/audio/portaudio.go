package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

type portAudioSource struct {
	format Format
	stream *portaudio.Stream
	buffer []int16

	closeOnce sync.Once
	closeErr  error
}

func openPortAudio(deviceID string, format Format) (Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	device, err := findPortAudioDevice(deviceID)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	// Open stream: mono, int16, one frame per buffer
	buffer := make([]int16, format.FrameSize)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: format.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(format.SampleRate),
		FramesPerBuffer: len(buffer),
	}, buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}

	return &portAudioSource{
		format: format,
		stream: stream,
		buffer: buffer,
	}, nil
}

func findPortAudioDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", deviceID)
}

func (p *portAudioSource) ReadFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if err := p.stream.Read(); err != nil {
		// An overflow still leaves a full buffer; PortAudio has already
		// dropped what it could not keep.
		if !errors.Is(err, portaudio.InputOverflowed) {
			return Frame{}, fmt.Errorf("read audio frame: %w", err)
		}
	}
	return NewFrame(samplesToPCM(p.buffer)), nil
}

func (p *portAudioSource) Close() error {
	p.closeOnce.Do(func() {
		if err := p.stream.Stop(); err != nil {
			p.closeErr = err
		}
		if err := p.stream.Close(); err != nil && p.closeErr == nil {
			p.closeErr = err
		}
		if err := portaudio.Terminate(); err != nil && p.closeErr == nil {
			p.closeErr = err
		}
	})
	return p.closeErr
}

func listPortAudioDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]Device, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, Device{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}
