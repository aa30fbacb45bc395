package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hnimtadd/craft-redis/internal/redis/resp"
)

// Decode parses one request frame, an array of bulk strings, into a Command.
// Every failure is a *ProtocolError.
func Decode(b []byte) (Command, error) {
	args, err := decodeFrame(b)
	if err != nil {
		return nil, err
	}
	return parse(args[0], args[1:])
}

// From redis docs:
// A client sends the Redis server an array consisting of only bulk strings.
func decodeFrame(b []byte) ([]string, error) {
	if len(b) == 0 {
		return nil, malformed(nil, "empty request")
	}
	if resp.DataType(b[0]) != resp.TypeArrays {
		return nil, malformed(nil, "expected '*', got '%c'", b[0])
	}

	parser := resp.Parser{}
	elesNum, nextIdx, err := parser.ParseArrayHeader(b)
	if err != nil {
		return nil, malformed(err, "invalid multibulk length")
	}
	if elesNum < 1 {
		return nil, malformed(nil, "invalid multibulk length %d", elesNum)
	}

	args := make([]string, 0, elesNum)
	for len(args) < elesNum {
		if nextIdx >= len(b) {
			return nil, &ProtocolError{
				Kind: KindWrongArity,
				Msg:  fmt.Sprintf("Protocol error: expected %d elements, got %d", elesNum, len(args)),
			}
		}
		if resp.DataType(b[nextIdx]) != resp.TypeBulkString {
			return nil, malformed(nil, "expected '$', got '%c'", b[nextIdx])
		}
		data, n, err := parser.ParseBulkStrings(b[nextIdx:])
		if err != nil {
			return nil, malformed(err, "invalid bulk string at element %d", len(args))
		}
		bulk, ok := data.(resp.BulkStringData)
		if !ok {
			return nil, malformed(nil, "invalid bulk length at element %d", len(args))
		}
		args = append(args, bulk.Data)
		nextIdx += n
	}
	if nextIdx != len(b) {
		return nil, &ProtocolError{
			Kind: KindWrongArity,
			Msg:  fmt.Sprintf("Protocol error: expected %d elements, got more", elesNum),
		}
	}
	return args, nil
}

func parse(name string, args []string) (Command, error) {
	switch strings.ToUpper(name) {
	case "PING":
		if len(args) != 0 {
			return nil, wrongArity("ping")
		}
		return Ping{}, nil

	case "ECHO":
		if len(args) != 1 {
			return nil, wrongArity("echo")
		}
		return Echo{Message: args[0]}, nil

	case "GET":
		if len(args) != 1 {
			return nil, wrongArity("get")
		}
		return Get{Key: args[0]}, nil

	case "SET":
		return parseSet(args)

	case "INFO":
		if len(args) != 1 {
			return nil, wrongArity("info")
		}
		return Info{Section: args[0]}, nil

	case "REPLCONF":
		if len(args) != 2 {
			return nil, wrongArity("replconf")
		}
		return ReplConf{Argument: args[0], Value: args[1]}, nil

	case "PSYNC":
		if len(args) != 2 {
			return nil, wrongArity("psync")
		}
		return PSync{ReplicationID: args[0], Offset: args[1]}, nil

	default:
		return nil, unknownCommand(name)
	}
}

// SET key value [PX milliseconds]
func parseSet(args []string) (Command, error) {
	if len(args) < 2 {
		return nil, wrongArity("set")
	}
	cmd := Set{Key: args[0], Value: args[1]}

	opts := args[2:]
	if len(opts) == 0 {
		return cmd, nil
	}
	if !strings.EqualFold(opts[0], "px") {
		return nil, &ProtocolError{Kind: KindMalformed, Msg: "syntax error"}
	}
	if len(opts) != 2 {
		return nil, wrongArity("set")
	}

	ttlInMs, err := strconv.ParseInt(opts[1], 10, 64)
	if err != nil || ttlInMs < 0 || ttlInMs > math.MaxInt64/int64(time.Millisecond) {
		return nil, &ProtocolError{
			Kind: KindMalformed,
			Msg:  fmt.Sprintf("invalid expire time in 'set' command: '%s'", opts[1]),
			Err:  err,
		}
	}
	ttl := time.Duration(ttlInMs) * time.Millisecond
	cmd.TTL = &ttl
	return cmd, nil
}
