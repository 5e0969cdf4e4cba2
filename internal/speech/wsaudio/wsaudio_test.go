package wsaudio_test

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/singalong/internal/speech/wsaudio"
)

func encodeSamples(samples []float32) []byte {
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}
	return data
}

func dialSource(t *testing.T, src *wsaudio.Source) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(src)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func TestSource_DeliversPCMFrames(t *testing.T) {
	t.Parallel()

	src := wsaudio.NewSource()
	defer src.Close()
	conn := dialSource(t, src)

	want := []float32{0.5, -0.25, 0.125}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageBinary, encodeSamples(want)); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("frame length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestSource_ReadHonorsContext(t *testing.T) {
	t.Parallel()

	src := wsaudio.NewSource()
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := src.Read(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Read err = %v, want deadline exceeded", err)
	}
}

func TestSource_CloseWhileClientStreaming(t *testing.T) {
	t.Parallel()

	src := wsaudio.NewSource()
	conn := dialSource(t, src)

	// Flood frames from the client while the source shuts down; the pump
	// must not trip over the closing source.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		frame := encodeSamples([]float32{0.1, -0.1})
		for {
			select {
			case <-stop:
				return
			default:
			}
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			err := conn.Write(ctx, websocket.MessageBinary, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	close(stop)
	wg.Wait()

	if _, err := src.Read(context.Background()); !errors.Is(err, wsaudio.ErrClosed) {
		t.Fatalf("Read err = %v, want ErrClosed", err)
	}
}

func TestSource_CloseEndsReads(t *testing.T) {
	t.Parallel()

	src := wsaudio.NewSource()
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := src.Read(context.Background()); !errors.Is(err, wsaudio.ErrClosed) {
		t.Fatalf("Read err = %v, want ErrClosed", err)
	}
}
