package evtgrp_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/greenledger/greenledger/app/services/ledger/handlers/v1/evtgrp"
	"github.com/greenledger/greenledger/business/web/mid"
	"github.com/greenledger/greenledger/foundation/events"
	"github.com/greenledger/greenledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_DeadClientIsolation(t *testing.T) {
	t.Log("Given the need to keep the service alive when a websocket client vanishes.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a connected client drops without a close handshake.", testID)
		{
			log := zap.NewNop().Sugar()

			bus := events.New(events.Config{})
			defer bus.Shutdown(time.Second)

			egh := evtgrp.Handlers{
				Log: log,
				WS:  websocket.Upgrader{},
				Bus: bus,
			}

			shutdown := make(chan os.Signal, 1)
			app := web.NewApp(shutdown, mid.Logger(log), mid.Errors(log), mid.Panics())
			app.Handle(http.MethodGet, "v1", "/events", egh.Events)

			srv := httptest.NewServer(app)
			defer srv.Close()

			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"
			c, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the websocket: %v", failed, testID, err)
			}

			bus.EmitCertificateIssued(map[string]any{"certificate_id": "cert-1"})

			var evt events.Event
			if err := c.ReadJSON(&evt); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould receive the first event: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the first event.", success, testID)

			// Kill the TCP connection without a close frame so the server
			// only learns about it when a write fails.
			c.UnderlyingConn().Close()

			deadline := time.After(2 * time.Second)
		drain:
			for {
				select {
				case sig := <-shutdown:
					t.Fatalf("\t%s\tTest %d:\tShould not signal a service shutdown: got %v", failed, testID, sig)
				case <-deadline:
					break drain
				case <-time.After(50 * time.Millisecond):
					bus.EmitCertificateIssued(map[string]any{"certificate_id": "cert-2"})
				}
			}
			t.Logf("\t%s\tTest %d:\tShould not signal a service shutdown.", success, testID)
		}
	}
}
