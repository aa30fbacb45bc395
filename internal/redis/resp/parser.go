package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrProtocol reports input that can never become a valid frame.
	ErrProtocol = errors.New("resp: protocol error")
	// ErrIncomplete reports input that ends before the frame does.
	ErrIncomplete = errors.New("resp: incomplete frame")
)

type Parser struct{}

// ParseNext parses the frame at the start of data and returns it together
// with the index of the first byte after it.
func (p Parser) ParseNext(data []byte) (Data, int, error) {
	if len(data) == 0 {
		return nil, -1, ErrIncomplete
	}

	typ := data[0]
	switch DataType(typ) {
	case TypeSimpleString:
		return p.ParseSimpleStrings(data)
	case TypeSimpleError:
		return p.ParseSimpleErrors(data)
	case TypeIntegers:
		return p.ParseIntegers(data)
	case TypeBulkString:
		return p.ParseBulkStrings(data)
	case TypeArrays:
		return p.ParseArrays(data)
	default:
		return nil, -1, fmt.Errorf("%w: unsupported data type %q", ErrProtocol, typ)
	}
}

// +<data>\r\n
func (p Parser) ParseSimpleStrings(input []byte) (Data, int, error) {
	line, nextIdx, err := p.readLine(input, TypeSimpleString)
	if err != nil {
		return nil, -1, err
	}
	return SimpleStringData{Data: string(line)}, nextIdx, nil
}

// -<message>\r\n
func (p Parser) ParseSimpleErrors(input []byte) (Data, int, error) {
	line, nextIdx, err := p.readLine(input, TypeSimpleError)
	if err != nil {
		return nil, -1, err
	}
	return SimpleErrorData{Msg: string(line)}, nextIdx, nil
}

// :<number>\r\n
func (p Parser) ParseIntegers(input []byte) (Data, int, error) {
	line, nextIdx, err := p.readLine(input, TypeIntegers)
	if err != nil {
		return nil, -1, err
	}
	value, err := strconv.Atoi(string(line))
	if err != nil {
		return nil, -1, fmt.Errorf("%w: invalid integer %q", ErrProtocol, line)
	}
	return Integer{Data: value}, nextIdx, nil
}

// $<length>\r\n<data>\r\n
func (p Parser) ParseBulkStrings(input []byte) (Data, int, error) {
	respLength, dataStartIdx, err := p.parseLength(input, TypeBulkString)
	if err != nil {
		return nil, -1, err
	}
	if respLength == -1 {
		// NULL bulkString
		return NullBulkStringData{}, dataStartIdx, nil
	}
	if respLength < 0 {
		return nil, -1, fmt.Errorf("%w: invalid bulk length %d", ErrProtocol, respLength)
	}

	// Compared this way round so a huge declared length cannot overflow.
	if respLength > len(input)-dataStartIdx-len(Terminator) {
		return nil, -1, fmt.Errorf("%w: bulk string declares %d bytes", ErrIncomplete, respLength)
	}
	dataEndIdx := dataStartIdx + respLength
	if string(input[dataEndIdx:dataEndIdx+len(Terminator)]) != Terminator {
		return nil, -1, fmt.Errorf("%w: bulk string length does not match declared %d", ErrProtocol, respLength)
	}

	return BulkStringData{
		Data: string(input[dataStartIdx:dataEndIdx]),
	}, dataEndIdx + len(Terminator), nil
}

// $<length>\r\n<data> with no trailing terminator.
func (p Parser) ParseInlineBytes(input []byte) (InlineBytesData, int, error) {
	respLength, dataStartIdx, err := p.parseLength(input, TypeBulkString)
	if err != nil {
		return InlineBytesData{}, -1, err
	}
	if respLength < 0 {
		return InlineBytesData{}, -1, fmt.Errorf("%w: invalid payload length %d", ErrProtocol, respLength)
	}
	if respLength > len(input)-dataStartIdx {
		return InlineBytesData{}, -1, fmt.Errorf("%w: payload declares %d bytes", ErrIncomplete, respLength)
	}
	dataEndIdx := dataStartIdx + respLength
	content := make([]byte, respLength)
	copy(content, input[dataStartIdx:dataEndIdx])
	return InlineBytesData{Content: content}, dataEndIdx, nil
}

// *<count>\r\n followed by count frames.
func (p Parser) ParseArrays(input []byte) (Data, int, error) {
	elesNum, nextIdx, err := p.ParseArrayHeader(input)
	if err != nil {
		return nil, -1, err
	}
	if elesNum < 0 {
		return nil, -1, fmt.Errorf("%w: invalid number of elements %d", ErrProtocol, elesNum)
	}

	datas := make([]Data, elesNum)
	for i := range elesNum {
		data, n, err := p.ParseNext(input[nextIdx:])
		if err != nil {
			return nil, -1, err
		}
		datas[i] = data
		nextIdx += n
	}

	return ArraysData{Datas: datas}, nextIdx, nil
}

// ParseArrayHeader parses "*<count>\r\n" and returns count and the index of
// the first element.
func (p Parser) ParseArrayHeader(input []byte) (int, int, error) {
	return p.parseLength(input, TypeArrays)
}

func (p Parser) parseLength(input []byte, typ DataType) (int, int, error) {
	line, nextIdx, err := p.readLine(input, typ)
	if err != nil {
		return 0, -1, err
	}
	if len(line) == 0 {
		return 0, -1, fmt.Errorf("%w: missing length after %q", ErrProtocol, typ)
	}
	length, err := strconv.Atoi(string(line))
	if err != nil {
		return 0, -1, fmt.Errorf("%w: invalid length %q", ErrProtocol, line)
	}
	return length, nextIdx, nil
}

// readLine checks the type prefix and returns the bytes up to the first
// terminator together with the index right after it.
func (p Parser) readLine(input []byte, typ DataType) ([]byte, int, error) {
	if len(input) == 0 {
		return nil, -1, ErrIncomplete
	}
	if DataType(input[0]) != typ {
		return nil, -1, fmt.Errorf("%w: expected %q, got %q", ErrProtocol, typ, input[0])
	}
	dataEndIdx := bytes.Index(input, []byte(Terminator))
	if dataEndIdx == -1 {
		return nil, -1, fmt.Errorf("%w: missing terminator", ErrIncomplete)
	}
	return input[1:dataEndIdx], dataEndIdx + len(Terminator), nil
}
