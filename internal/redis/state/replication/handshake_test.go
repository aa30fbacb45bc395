package replication

import (
	"errors"
	"net"
	"regexp"
	"testing"

	"github.com/hnimtadd/craft-redis/internal/network"
	"github.com/hnimtadd/craft-redis/internal/redis/resp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMaster answers each request in order with the matching reply and
// records what it received.
func fakeMaster(t *testing.T, conn net.Conn, replies []resp.Data) <-chan []string {
	t.Helper()
	received := make(chan []string, 1)
	go func() {
		defer close(received)
		defer conn.Close()
		link := network.NewConn(conn)
		var verbs []string
		defer func() { received <- verbs }()
		for _, reply := range replies {
			req, err := link.Read()
			if err != nil {
				return
			}
			arr, ok := req.(resp.ArraysData)
			if !ok {
				return
			}
			line := ""
			for i, d := range arr.Datas {
				if i > 0 {
					line += " "
				}
				line += d.(resp.BulkStringData).Data
			}
			verbs = append(verbs, line)
			if err := link.Write(reply); err != nil {
				return
			}
		}
	}()
	return received
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestHandshakeSuccess(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	snapshot := []byte("REDIS0011\xff")
	received := fakeMaster(t, server, []resp.Data{
		resp.SimpleStringData{Data: "PONG"},
		resp.SimpleStringData{Data: "OK"},
		resp.BulkStringData{Data: "ok"},
		resp.SequenceData{Datas: []resp.Data{
			resp.SimpleStringData{Data: "FULLRESYNC 8371b4fb1155b71f4a04d3e1bc3e18c4a990aeeb 0"},
			resp.InlineBytesData{Content: snapshot},
		}},
	})

	handshake := NewHandshake(network.NewConn(client), 6380, quietLogger())
	assert.Equal(t, StateStart, handshake.State())

	require.NoError(t, handshake.Run())
	assert.Equal(t, StateResyncRequested, handshake.State())
	assert.Equal(t, "FULLRESYNC 8371b4fb1155b71f4a04d3e1bc3e18c4a990aeeb 0", handshake.FullResync())
	assert.Equal(t, snapshot, handshake.Snapshot())

	client.Close()
	assert.Equal(t, []string{
		"PING",
		"REPLCONF listening-port 6380",
		"REPLCONF capa psync2",
		"PSYNC ? -1",
	}, <-received)
}

func TestHandshakeFailures(t *testing.T) {
	tcs := []struct {
		name          string
		replies       []resp.Data
		expectedState State
	}{
		{
			name:          "ping answered with error",
			replies:       []resp.Data{resp.SimpleErrorData{Msg: "ERR pong"}},
			expectedState: StateStart,
		},
		{
			name:          "ping answered with something else",
			replies:       []resp.Data{resp.SimpleStringData{Data: "HELLO"}},
			expectedState: StateStart,
		},
		{
			name: "listening-port rejected",
			replies: []resp.Data{
				resp.SimpleStringData{Data: "PONG"},
				resp.SimpleStringData{Data: "NOPE"},
			},
			expectedState: StatePingSent,
		},
		{
			name: "capa rejected",
			replies: []resp.Data{
				resp.SimpleStringData{Data: "pong"},
				resp.SimpleStringData{Data: "OK"},
				resp.NullBulkStringData{},
			},
			expectedState: StatePortAcked,
		},
		{
			name: "psync rejected",
			replies: []resp.Data{
				resp.SimpleStringData{Data: "PONG"},
				resp.SimpleStringData{Data: "OK"},
				resp.SimpleStringData{Data: "OK"},
				resp.SimpleErrorData{Msg: "ERR no"},
			},
			expectedState: StateCapaAcked,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			_ = fakeMaster(t, server, tc.replies)

			handshake := NewHandshake(network.NewConn(client), 6380, quietLogger())
			err := handshake.Run()

			var handshakeErr *HandshakeError
			require.True(t, errors.As(err, &handshakeErr))
			assert.Equal(t, tc.expectedState, handshakeErr.State)
			assert.ErrorIs(t, err, ErrUnexpectedReply)
			assert.Equal(t, tc.expectedState, handshake.State())
		})
	}
}

func TestHandshakeMasterHangsUp(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	_ = fakeMaster(t, server, []resp.Data{resp.SimpleStringData{Data: "PONG"}})

	handshake := NewHandshake(network.NewConn(client), 6380, quietLogger())
	err := handshake.Run()

	var handshakeErr *HandshakeError
	require.ErrorAs(t, err, &handshakeErr)
	assert.Equal(t, StatePingSent, handshakeErr.State)
}

func TestNewIdentity(t *testing.T) {
	id := NewIdentity()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{40}$`), id.ID)
	assert.Equal(t, int64(0), id.Offset)
	assert.NotEqual(t, id.ID, NewIdentity().ID)
}

func TestRole(t *testing.T) {
	assert.True(t, RoleMaster.IsMaster())
	assert.False(t, RoleSlave.IsMaster())
	assert.Equal(t, "slave", string(RoleSlave))
}
