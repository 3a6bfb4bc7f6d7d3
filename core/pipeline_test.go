package engine

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/vox-core/core/audio"
)

type fakeDevice struct {
	mu sync.Mutex

	startCalls int
	stopCalls  int
	closed     bool

	onAudio func([]byte)
	lastCtx context.Context
	sent    [][]byte
	marks   []func(string)

	// sentWhileCapturing counts buffers scheduled while capture was active,
	// which the half-duplex policy forbids.
	sentWhileCapturing int

	startErr error
	sendErr  error
}

func (d *fakeDevice) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.startCalls++
	d.onAudio = onAudio
	d.lastCtx = ctx
	return nil
}

func (d *fakeDevice) StopCapture() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopCalls++
	d.onAudio = nil
	return nil
}

func (d *fakeDevice) SendAudio(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	if d.onAudio != nil {
		d.sentWhileCapturing++
	}
	queued := make([]byte, len(data))
	copy(queued, data)
	d.sent = append(d.sent, queued)
	return nil
}

func (d *fakeDevice) Mark(_ string, callback func(string)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.marks = append(d.marks, callback)
	return nil
}

func (d *fakeDevice) CaptureEncoding() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (d *fakeDevice) PlaybackEncoding() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// drainMark fires the oldest pending completion mark, as the audio backend
// would once a buffer finished playing.
func (d *fakeDevice) drainMark(t *testing.T) {
	t.Helper()
	d.mu.Lock()
	if len(d.marks) == 0 {
		d.mu.Unlock()
		t.Fatalf("no pending marks to drain")
	}
	callback := d.marks[0]
	d.marks = d.marks[1:]
	d.mu.Unlock()
	callback("")
}

func (d *fakeDevice) counts() (starts, stops int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startCalls, d.stopCalls
}

// viablePayload is a base64 s16le buffer long and loud enough to survive
// chunk screening.
func viablePayload(t *testing.T) string {
	t.Helper()
	data := make([]byte, 64)
	for i := 0; i < len(data); i += 2 {
		data[i] = 0x00
		data[i+1] = 0x10
	}
	return base64.StdEncoding.EncodeToString(data)
}

func TestStartCaptureIsIdempotent(t *testing.T) {
	device := &fakeDevice{}
	pipeline, err := NewPipeline(device)
	if err != nil {
		t.Fatalf("Failed to construct pipeline: %v", err)
	}

	if err := pipeline.StartCapture(t.Context()); err != nil {
		t.Fatalf("Failed to start capture: %v", err)
	}
	if err := pipeline.StartCapture(t.Context()); err != nil {
		t.Fatalf("Failed to start capture twice: %v", err)
	}

	if starts, _ := device.counts(); starts != 1 {
		t.Errorf("Expected 1 device start, got %d", starts)
	}
	if !pipeline.IsCapturing() {
		t.Errorf("Expected pipeline to be capturing")
	}

	if err := pipeline.StopCapture(); err != nil {
		t.Fatalf("Failed to stop capture: %v", err)
	}
	if err := pipeline.StopCapture(); err != nil {
		t.Fatalf("Failed to stop capture twice: %v", err)
	}

	if _, stops := device.counts(); stops != 1 {
		t.Errorf("Expected 1 device stop, got %d", stops)
	}
}

func TestPlaybackSuspendsCapture(t *testing.T) {
	device := &fakeDevice{}
	pipeline, err := NewPipeline(device)
	if err != nil {
		t.Fatalf("Failed to construct pipeline: %v", err)
	}

	if err := pipeline.StartCapture(t.Context()); err != nil {
		t.Fatalf("Failed to start capture: %v", err)
	}

	pipeline.Playback(viablePayload(t))

	if pipeline.IsCapturing() {
		t.Errorf("Expected capture suspended while playback is pending")
	}
	if pending := pipeline.PendingPlayback(); pending != 1 {
		t.Errorf("Expected 1 pending buffer, got %d", pending)
	}

	device.mu.Lock()
	scheduled := len(device.sent)
	device.mu.Unlock()
	if scheduled != 1 {
		t.Fatalf("Expected 1 scheduled buffer, got %d", scheduled)
	}

	device.drainMark(t)

	if !pipeline.IsCapturing() {
		t.Errorf("Expected capture resumed after playback drained")
	}
	if pending := pipeline.PendingPlayback(); pending != 0 {
		t.Errorf("Expected no pending buffers, got %d", pending)
	}
}

func TestCaptureResumesOnlyAtZeroPending(t *testing.T) {
	device := &fakeDevice{}
	pipeline, err := NewPipeline(device)
	if err != nil {
		t.Fatalf("Failed to construct pipeline: %v", err)
	}

	if err := pipeline.StartCapture(t.Context()); err != nil {
		t.Fatalf("Failed to start capture: %v", err)
	}

	pipeline.Playback(viablePayload(t))
	pipeline.Playback(viablePayload(t))

	if pending := pipeline.PendingPlayback(); pending != 2 {
		t.Fatalf("Expected 2 pending buffers, got %d", pending)
	}

	device.drainMark(t)
	if pipeline.IsCapturing() {
		t.Errorf("Expected capture to stay suspended with a buffer still pending")
	}

	device.drainMark(t)
	if !pipeline.IsCapturing() {
		t.Errorf("Expected capture resumed once all buffers drained")
	}
	if starts, _ := device.counts(); starts != 2 {
		t.Errorf("Expected 2 device starts, got %d", starts)
	}
}

func TestStartCaptureDeferredWhilePlaybackPending(t *testing.T) {
	device := &fakeDevice{}
	pipeline, err := NewPipeline(device)
	if err != nil {
		t.Fatalf("Failed to construct pipeline: %v", err)
	}

	pipeline.Playback(viablePayload(t))

	if err := pipeline.StartCapture(t.Context()); err != nil {
		t.Fatalf("Failed to request capture: %v", err)
	}
	if pipeline.IsCapturing() {
		t.Errorf("Expected capture deferred while playback is pending")
	}
	if starts, _ := device.counts(); starts != 0 {
		t.Errorf("Expected no device starts yet, got %d", starts)
	}

	device.drainMark(t)

	if !pipeline.IsCapturing() {
		t.Errorf("Expected deferred capture to start after playback drained")
	}
}

func TestPlaybackDropsUndecodablePayload(t *testing.T) {
	device := &fakeDevice{}
	pipeline, err := NewPipeline(device)
	if err != nil {
		t.Fatalf("Failed to construct pipeline: %v", err)
	}

	if err := pipeline.StartCapture(t.Context()); err != nil {
		t.Fatalf("Failed to start capture: %v", err)
	}

	pipeline.Playback("not base64!")

	if pending := pipeline.PendingPlayback(); pending != 0 {
		t.Errorf("Expected no pending buffers, got %d", pending)
	}
	if !pipeline.IsCapturing() {
		t.Errorf("Expected capture undisturbed by an undecodable payload")
	}
	device.mu.Lock()
	scheduled := len(device.sent)
	device.mu.Unlock()
	if scheduled != 0 {
		t.Errorf("Expected no scheduled buffers, got %d", scheduled)
	}
}

func TestCaptureEmitsViableChunksOnly(t *testing.T) {
	device := &fakeDevice{}
	pipeline, err := NewPipeline(device)
	if err != nil {
		t.Fatalf("Failed to construct pipeline: %v", err)
	}

	var mu sync.Mutex
	var chunks []audio.Chunk
	pipeline.SetSink(func(chunk audio.Chunk) {
		mu.Lock()
		chunks = append(chunks, chunk)
		mu.Unlock()
	})

	if err := pipeline.StartCapture(t.Context()); err != nil {
		t.Fatalf("Failed to start capture: %v", err)
	}

	loud := make([]byte, 64)
	for i := 0; i < len(loud); i += 2 {
		loud[i+1] = 0x10
	}
	silent := make([]byte, 64)
	tiny := []byte{0x00, 0x10}

	device.mu.Lock()
	onAudio := device.onAudio
	device.mu.Unlock()

	onAudio(loud)
	onAudio(silent)
	onAudio(tiny)
	onAudio(loud)

	mu.Lock()
	defer mu.Unlock()
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 emitted chunks, got %d", len(chunks))
	}
	if chunks[0].Sequence >= chunks[1].Sequence {
		t.Errorf("Expected strictly increasing sequence numbers, got %d then %d",
			chunks[0].Sequence, chunks[1].Sequence)
	}
	if len(chunks[0].Data) != len(loud) {
		t.Errorf("Expected chunk to carry the converted frame, got %d bytes", len(chunks[0].Data))
	}
}

type deferredCtxKey struct{}

func TestDeferredCaptureStartsWithRequestContext(t *testing.T) {
	device := &fakeDevice{}
	pipeline, err := NewPipeline(device)
	if err != nil {
		t.Fatalf("Failed to construct pipeline: %v", err)
	}

	pipeline.Playback(viablePayload(t))

	ctx := context.WithValue(context.Background(), deferredCtxKey{}, "deferred")
	if err := pipeline.StartCapture(ctx); err != nil {
		t.Fatalf("Failed to request capture: %v", err)
	}

	device.drainMark(t)

	device.mu.Lock()
	started := device.lastCtx
	device.mu.Unlock()
	if started == nil || started.Value(deferredCtxKey{}) != "deferred" {
		t.Errorf("Expected the deferred start to use the requesting context")
	}
}

func TestConcurrentPlaybackNeverOverlapsCapture(t *testing.T) {
	device := &fakeDevice{}
	pipeline, err := NewPipeline(device)
	if err != nil {
		t.Fatalf("Failed to construct pipeline: %v", err)
	}

	const buffers = 200
	payload := viablePayload(t)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for range buffers {
			pipeline.Playback(payload)
		}
	}()
	go func() {
		defer wg.Done()
		drained := 0
		for drained < buffers {
			device.mu.Lock()
			var callback func(string)
			if len(device.marks) > 0 {
				callback = device.marks[0]
				device.marks = device.marks[1:]
			}
			device.mu.Unlock()
			if callback == nil {
				time.Sleep(time.Millisecond)
				continue
			}
			callback("")
			drained++
		}
	}()
	go func() {
		defer wg.Done()
		for range buffers {
			_ = pipeline.StartCapture(context.Background())
			_ = pipeline.StopCapture()
		}
	}()
	wg.Wait()

	device.mu.Lock()
	defer device.mu.Unlock()
	if device.sentWhileCapturing != 0 {
		t.Errorf("Expected no buffers scheduled while capture was active, got %d", device.sentWhileCapturing)
	}
}

func TestCloseStopsCaptureAndDevice(t *testing.T) {
	device := &fakeDevice{}
	pipeline, err := NewPipeline(device)
	if err != nil {
		t.Fatalf("Failed to construct pipeline: %v", err)
	}

	if err := pipeline.StartCapture(t.Context()); err != nil {
		t.Fatalf("Failed to start capture: %v", err)
	}
	if err := pipeline.Close(); err != nil {
		t.Fatalf("Failed to close pipeline: %v", err)
	}

	device.mu.Lock()
	defer device.mu.Unlock()
	if !device.closed {
		t.Errorf("Expected device closed")
	}
	if device.stopCalls != 1 {
		t.Errorf("Expected 1 device stop, got %d", device.stopCalls)
	}
}
