package report_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"stepcore/motion"
	"stepcore/report"
)

type fakeSource struct {
	snap report.Snapshot
}

func (f *fakeSource) Snapshot() report.Snapshot { return f.snap }

func TestStatusServerBroadcastsSnapshotsToSubscribers(t *testing.T) {
	source := &fakeSource{snap: report.Snapshot{
		PositionMM:  [motion.NumAxes]float64{1, 2, 3, 4},
		QueueDepth:  5,
		EndstopHit:  true,
		EndstopBits: motion.HitBitX,
	}}
	server := report.NewStatusServer(source, 20*time.Millisecond)

	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	go server.Run(stop)
	defer close(stop)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(data)
	for _, want := range []string{`"queue_depth":5`, `"endstop_hit":true`} {
		if !strings.Contains(got, want) {
			t.Errorf("snapshot payload %q missing %q", got, want)
		}
	}
}
