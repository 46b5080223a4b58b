package turn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/application/turn/usecases"
	"github.com/taketurn/taketurn/internal/infrastructure/services"
	"github.com/taketurn/taketurn/internal/shared/logger"
)

func newSocketServer(t *testing.T, origins []string) (*httptest.Server, *services.TurnHub, *usecases.TurnService) {
	t.Helper()

	svc := newService()
	hub := services.NewTurnHub(svc, logger.NewNop())
	handler := NewSocketHandler(hub, origins, logger.NewNop())

	r := gin.New()
	r.GET("/wss", handler.Subscribe)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, svc
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/wss"
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func readReference(t *testing.T, conn *websocket.Conn) dto.TurnReference {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ref dto.TurnReference
	require.NoError(t, conn.ReadJSON(&ref))
	return ref
}

func TestSocketHandler_ReceivesCurrentAndChanges(t *testing.T) {
	srv, hub, svc := newSocketServer(t, nil)
	ctx := context.Background()

	first, err := svc.AllocateOrGetNext(ctx)
	require.NoError(t, err)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()

	ref := readReference(t, conn)
	assert.Equal(t, "http://turns.test", ref.ServerURL)
	assert.Equal(t, first.ID, ref.NextAvailableTurn)
	assert.Equal(t, 1, hub.Count())

	reserved, err := svc.Reserve(ctx, first.ID)
	require.NoError(t, err)

	ref = readReference(t, conn)
	assert.Equal(t, reserved.Next.ID, ref.NextAvailableTurn)
	assert.Equal(t, int64(2), ref.Number)
}

func TestSocketHandler_DisconnectUnregisters(t *testing.T) {
	srv, hub, svc := newSocketServer(t, nil)

	_, err := svc.AllocateOrGetNext(context.Background())
	require.NoError(t, err)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	readReference(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSocketHandler_RejectsForeignOrigin(t *testing.T) {
	srv, hub, _ := newSocketServer(t, []string{"http://allowed.test"})

	header := http.Header{"Origin": {"http://evil.test"}}
	_, resp, err := dial(t, srv, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Count())
}
