package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/vox-core/core/audio"
)

const deviceSampleRate = 48000

// Client is a blocking-stream backend. Playback runs on a worker goroutine
// so writes stay ordered and marks fire once everything queued before them
// has been written to the device.
type Client struct {
	bufferSize int
	stream     *portaudio.Stream

	in  []int16
	out []int16

	jobs chan playbackJob
	done chan struct{}

	capturing   atomic.Bool
	captureStop chan struct{}
}

type playbackJob struct {
	audio    []byte
	mark     string
	callback func(string)
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, deviceSampleRate, bufferSize, in, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	client := &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
		jobs:       make(chan playbackJob, 64),
		done:       make(chan struct{}),
	}
	go client.processPlayback()

	return client, nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	if !c.capturing.CompareAndSwap(false, true) {
		return nil
	}

	stop := make(chan struct{})
	c.captureStop = stop

	go func() {
		defer c.capturing.Store(false)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			default:
				if err := c.stream.Read(); err != nil {
					log.Printf("Failed to read from portaudio stream: %v", err)
					continue
				}

				audioBuffer := bytes.Buffer{}
				binary.Write(&audioBuffer, binary.LittleEndian, c.in)
				onAudio(audioBuffer.Bytes())
			}
		}
	}()

	return nil
}

func (c *Client) StopCapture() error {
	if !c.capturing.Load() {
		return nil
	}
	if c.captureStop != nil {
		close(c.captureStop)
		c.captureStop = nil
	}
	return nil
}

func (c *Client) SendAudio(data []byte) error {
	queued := make([]byte, len(data))
	copy(queued, data)

	select {
	case c.jobs <- playbackJob{audio: queued}:
		return nil
	case <-c.done:
		return fmt.Errorf("client closed")
	}
}

func (c *Client) Mark(mark string, callback func(string)) error {
	select {
	case c.jobs <- playbackJob{mark: mark, callback: callback}:
		return nil
	case <-c.done:
		return fmt.Errorf("client closed")
	}
}

func (c *Client) CaptureEncoding() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: deviceSampleRate, Format: audio.EncodingLinear16, Channels: 1}
}

func (c *Client) PlaybackEncoding() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: deviceSampleRate, Format: audio.EncodingLinear16, Channels: 1}
}

func (c *Client) Close() error {
	_ = c.StopCapture()
	close(c.done)
	c.stream.Close()
	portaudio.Terminate()
	return nil
}

// processPlayback drains queued buffers in scheduling order. A mark's
// callback fires only after every buffer queued before it has been written.
func (c *Client) processPlayback() {
	leftover := []byte{}
	frameBytes := c.bufferSize * 2

	for {
		select {
		case <-c.done:
			return
		case job := <-c.jobs:
			if job.callback != nil {
				c.flush(leftover)
				leftover = leftover[:0]
				job.callback(job.mark)
				continue
			}

			leftover = append(leftover, job.audio...)
			for len(leftover) >= frameBytes {
				c.writeFrame(leftover[:frameBytes])
				leftover = leftover[frameBytes:]
			}
		}
	}
}

// flush pads the remainder with silence so a mark never waits on a partial
// frame.
func (c *Client) flush(leftover []byte) {
	if len(leftover) == 0 {
		return
	}

	frameBytes := c.bufferSize * 2
	padded := make([]byte, frameBytes)
	copy(padded, leftover)
	c.writeFrame(padded)
}

func (c *Client) writeFrame(frame []byte) {
	if err := binary.Read(bytes.NewBuffer(frame), binary.LittleEndian, c.out); err != nil {
		log.Printf("Failed to stage playback frame: %v", err)
		return
	}
	if err := c.stream.Write(); err != nil {
		log.Printf("Failed to write to portaudio stream: %v", err)
	}
}
