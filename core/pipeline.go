package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/vox-core/core/audio"
)

// DeviceClient is the contract a concrete audio backend provides: capture
// frames delivered through a callback at the device's native encoding, a
// playback byte queue, and completion marks fired on the audio context once
// previously queued audio has drained.
type DeviceClient interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error

	SendAudio(audio []byte) error
	Mark(mark string, callback func(string)) error

	CaptureEncoding() audio.EncodingInfo
	PlaybackEncoding() audio.EncodingInfo

	Close() error
}

// ChunkSink receives converted capture chunks bound for the wire.
type ChunkSink func(audio.Chunk)

// Pipeline owns both directions of the audio path: capture, conversion to
// the wire encoding and chunk emission on one side; payload decode,
// resampling and scheduled playback on the other. Capture and playback are
// mutually exclusive; playback wins and capture resumes once the pending
// buffer count returns to zero.
type Pipeline struct {
	device DeviceClient
	wire   audio.EncodingInfo

	sinkMu sync.Mutex
	sink   ChunkSink

	// capturing tracks whether the device capture is actually running;
	// captureRequested tracks whether the caller wants it running. They
	// diverge while playback holds the device.
	capturing        atomic.Bool
	captureRequested atomic.Bool

	// playbackMu guards pendingPlayback, baseContext and every capture
	// start/stop decision, so a suspend, a resume and a deferred start can
	// never interleave.
	playbackMu      sync.Mutex
	pendingPlayback int
	baseContext     context.Context

	sequence atomic.Uint64
}

type PipelineOption func(*Pipeline)

// WithWireEncoding overrides the canonical outbound encoding.
func WithWireEncoding(encoding audio.EncodingInfo) PipelineOption {
	return func(p *Pipeline) { p.wire = encoding }
}

func NewPipeline(device DeviceClient, opts ...PipelineOption) (*Pipeline, error) {
	if device == nil {
		return nil, fmt.Errorf("audio device client not provided")
	}

	pipeline := &Pipeline{
		device:      device,
		wire:        audio.GetDefaultEncodingInfo(),
		baseContext: context.Background(),
	}
	for _, opt := range opts {
		opt(pipeline)
	}
	return pipeline, nil
}

// SetSink registers the consumer of outbound chunks.
func (p *Pipeline) SetSink(sink ChunkSink) {
	p.sinkMu.Lock()
	p.sink = sink
	p.sinkMu.Unlock()
}

// WireEncoding is the canonical outbound encoding chunks are emitted in.
func (p *Pipeline) WireEncoding() audio.EncodingInfo { return p.wire }

func (p *Pipeline) IsCapturing() bool { return p.capturing.Load() }

// PendingPlayback is the number of scheduled buffers that have not finished
// playing.
func (p *Pipeline) PendingPlayback() int {
	p.playbackMu.Lock()
	defer p.playbackMu.Unlock()
	return p.pendingPlayback
}

// StartCapture requests capture. It is idempotent, and deferred rather than
// refused while playback buffers are pending.
func (p *Pipeline) StartCapture(ctx context.Context) error {
	p.playbackMu.Lock()
	defer p.playbackMu.Unlock()

	p.baseContext = ctx
	p.captureRequested.Store(true)
	if p.pendingPlayback > 0 {
		return nil
	}

	return p.startDevice(ctx)
}

// StopCapture is idempotent; stopping an inactive capture is a no-op.
func (p *Pipeline) StopCapture() error {
	p.playbackMu.Lock()
	defer p.playbackMu.Unlock()

	p.captureRequested.Store(false)
	return p.stopDevice()
}

// Playback decodes a base64 payload, resamples it to the playback encoding
// and schedules it. Decode failures are dropped without disturbing capture
// state. Buffers play in scheduling order.
func (p *Pipeline) Playback(payload string) {
	data, err := audio.DecodePayload(payload)
	if err != nil {
		logger.Warn("dropping undecodable audio payload", "error", err)
		return
	}

	pcm := audio.FromWire(data, p.wire, p.device.PlaybackEncoding())

	p.playbackMu.Lock()
	if p.capturing.Load() {
		if err := p.stopDevice(); err != nil {
			log.Printf("Failed to suspend capture for playback: %v", err)
		}
	}
	p.pendingPlayback++
	p.playbackMu.Unlock()

	if err := p.device.SendAudio(pcm); err != nil {
		log.Printf("Failed to schedule playback buffer: %v", err)
		p.bufferDrained()
		return
	}
	if err := p.device.Mark("", func(string) { p.bufferDrained() }); err != nil {
		log.Printf("Failed to mark playback buffer: %v", err)
		p.bufferDrained()
	}
}

func (p *Pipeline) Close() error {
	p.playbackMu.Lock()
	p.captureRequested.Store(false)
	_ = p.stopDevice()
	p.playbackMu.Unlock()

	return p.device.Close()
}

func (p *Pipeline) startDevice(ctx context.Context) error {
	if !p.capturing.CompareAndSwap(false, true) {
		return nil
	}

	if err := p.device.StartCapture(ctx, p.onDeviceAudio); err != nil {
		p.capturing.Store(false)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (p *Pipeline) stopDevice() error {
	if !p.capturing.CompareAndSwap(true, false) {
		return nil
	}

	if err := p.device.StopCapture(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

// onDeviceAudio converts one native capture frame to the wire encoding and
// emits it. Non-viable chunks are sensor glitches and are dropped silently.
func (p *Pipeline) onDeviceAudio(data []byte) {
	converted := audio.ToWire(data, p.device.CaptureEncoding(), p.wire)
	chunk := audio.NewChunk(converted, p.wire, p.sequence.Add(1))
	if !chunk.Viable() {
		return
	}

	p.sinkMu.Lock()
	sink := p.sink
	p.sinkMu.Unlock()
	if sink != nil {
		sink(chunk)
	}
}

// bufferDrained fires when a scheduled buffer finished playing. Capture is
// resumed exactly when the pending count returns to zero and the caller
// still wants it. The resume happens under playbackMu so a concurrent
// Playback cannot slip a new buffer in between the decision and the start.
func (p *Pipeline) bufferDrained() {
	p.playbackMu.Lock()
	defer p.playbackMu.Unlock()

	p.pendingPlayback--
	if p.pendingPlayback == 0 && p.captureRequested.Load() {
		if err := p.startDevice(p.baseContext); err != nil {
			log.Printf("Failed to resume capture after playback: %v", err)
		}
	}
}
