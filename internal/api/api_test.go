package api

import (
	"net/http"
	"testing"

	"github.com/npezzotti/studychat/internal/config"
	"github.com/npezzotti/studychat/internal/database"
	"github.com/npezzotti/studychat/internal/rewards"
	"github.com/npezzotti/studychat/internal/rooms"
	"github.com/npezzotti/studychat/internal/server"
	"github.com/npezzotti/studychat/internal/stats"
	"github.com/npezzotti/studychat/internal/testutil"
	"github.com/stretchr/testify/mock"
)

func newTestApp(t *testing.T, db *database.MockStudyChatRepository) *StudyChatApp {
	st := &stats.MockStatsUpdater{}
	st.On("Incr", mock.Anything).Maybe()
	st.On("Decr", mock.Anything).Maybe()

	pub := &rewards.MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	logger := testutil.TestLogger(t)
	svc := rooms.NewRoomService(logger, db, pub, st)
	registry := server.NewConnectionRegistry(logger, st)

	cfg := &config.Config{
		ServerAddr: "localhost:0",
		SigningKey: []byte("test-signing-key"),
	}

	return NewStudyChatApp(logger, db, svc, registry, st, http.NewServeMux(), cfg)
}
