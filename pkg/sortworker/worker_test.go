package sortworker

import (
	"context"
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

func startWorker(t *testing.T, cfg Config) *Worker {
	t.Helper()
	w := New(cfg)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func recv(t *testing.T, w *Worker) Response {
	t.Helper()
	select {
	case b := <-w.Messages():
		resp, err := DecodeResponse(b)
		if err != nil {
			t.Fatalf("DecodeResponse(%s): %v", b, err)
		}
		return resp
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for worker response")
	}
	return Response{}
}

func TestWorker_SortsAndEchoesTag(t *testing.T) {
	w := startWorker(t, Config{})
	in := []model.RoomSummary{{ID: "a", Recency: 1}, {ID: "b", Recency: 3}, {ID: "c", Recency: 2}}
	msg, err := EncodeRequest(42, in)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Post(context.Background(), msg); err != nil {
		t.Fatalf("Post: %v", err)
	}

	resp := recv(t, w)
	if resp.Kind != KindSorted || resp.Tag != 42 {
		t.Fatalf("resp = %+v", resp)
	}
	ids := []string{resp.Payload[0].ID, resp.Payload[1].ID, resp.Payload[2].ID}
	if ids[0] != "b" || ids[1] != "c" || ids[2] != "a" {
		t.Errorf("order = %v, want [b c a]", ids)
	}
	if st := w.Stats(); st.Sorted != 1 || st.Rooms != 3 {
		t.Errorf("stats = %+v", st)
	}
}

func TestWorker_EchoesMalformedInput(t *testing.T) {
	w := startWorker(t, Config{})
	raw := `{"kind":"sort","flag":9,"payload":"{}"}`
	if err := w.Post(context.Background(), []byte(raw)); err != nil {
		t.Fatal(err)
	}
	resp := recv(t, w)
	if resp.Kind != KindEcho {
		t.Fatalf("kind = %q, want echo", resp.Kind)
	}
	if resp.Raw != raw || resp.Tag != 9 {
		t.Errorf("echo = %+v", resp)
	}
	if w.Stats().Echoed != 1 {
		t.Errorf("Echoed = %d", w.Stats().Echoed)
	}
}

func TestWorker_DiagnosticsPrecedeResult(t *testing.T) {
	w := startWorker(t, Config{Diagnostics: true})
	msg, _ := EncodeRequest(3, []model.RoomSummary{{ID: "x", Recency: 5}})
	if err := w.Post(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	first := recv(t, w)
	second := recv(t, w)
	if first.Kind != KindLog || first.Log == "" {
		t.Errorf("first = %+v, want log", first)
	}
	if second.Kind != KindSorted || second.Tag != 3 {
		t.Errorf("second = %+v, want sorted tag 3", second)
	}
}

func TestWorker_ResponsesInRequestOrder(t *testing.T) {
	w := startWorker(t, Config{Buffer: 4})
	for tag := uint64(1); tag <= 5; tag++ {
		msg, _ := EncodeRequest(tag, []model.RoomSummary{{ID: "r", Recency: int64(tag)}})
		if err := w.Post(context.Background(), msg); err != nil {
			t.Fatal(err)
		}
	}
	for tag := uint64(1); tag <= 5; tag++ {
		if resp := recv(t, w); resp.Tag != tag {
			t.Fatalf("got tag %d, want %d", resp.Tag, tag)
		}
	}
}

func TestWorker_PostCopiesInput(t *testing.T) {
	w := New(Config{Buffer: 1})
	msg, _ := EncodeRequest(1, []model.RoomSummary{{ID: "a", Recency: 1}})
	if err := w.Post(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	for i := range msg {
		msg[i] = 'x'
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	if resp := recv(t, w); resp.Kind != KindSorted {
		t.Errorf("kind = %q, want sorted", resp.Kind)
	}
}

func TestWorker_StopLifecycle(t *testing.T) {
	w := New(Config{})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Errorf("second Start: %v", err)
	}
	w.Stop()
	w.Stop()

	select {
	case <-w.Done():
	default:
		t.Error("Done not closed after Stop")
	}
	if err := w.Start(); !errors.Is(err, ErrStopped) {
		t.Errorf("Start after Stop = %v, want ErrStopped", err)
	}
	if err := w.Post(context.Background(), []byte(`{}`)); !errors.Is(err, ErrStopped) {
		t.Errorf("Post after Stop = %v, want ErrStopped", err)
	}
}

func TestWorker_PostHonoursContext(t *testing.T) {
	w := New(Config{Buffer: 1})
	t.Cleanup(w.Stop)
	if err := w.Post(context.Background(), []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := w.Post(ctx, []byte(`{}`)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Post on full buffer = %v, want DeadlineExceeded", err)
	}
}

func TestWorker_MatchesLocalSort(t *testing.T) {
	w := startWorker(t, Config{})
	rapid.Check(t, func(rt *rapid.T) {
		in := rapid.SliceOf(summaryGen()).Draw(rt, "in")
		msg, err := EncodeRequest(1, in)
		if err != nil {
			rt.Fatal(err)
		}
		if err := w.Post(context.Background(), msg); err != nil {
			rt.Fatal(err)
		}
		var resp Response
		select {
		case b := <-w.Messages():
			resp, err = DecodeResponse(b)
			if err != nil {
				rt.Fatal(err)
			}
		case <-time.After(2 * time.Second):
			rt.Fatal("timeout")
		}
		local := SortLocal(in)
		if len(resp.Payload) != len(local) {
			rt.Fatalf("len %d != %d", len(resp.Payload), len(local))
		}
		for i := range local {
			if resp.Payload[i].Recency != local[i].Recency {
				rt.Fatalf("recency at %d: worker %d local %d", i, resp.Payload[i].Recency, local[i].Recency)
			}
		}
	})
}
