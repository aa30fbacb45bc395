package resp

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type (
	// Data is a single RESP frame. String returns its exact wire form.
	Data interface {
		String() string
		data()
	}
	SimpleStringData struct {
		Data string
	}
	BulkStringData struct {
		Data string
	}
	NullBulkStringData struct{}
	ArraysData         struct {
		Datas []Data
	}
	SimpleErrorData struct {
		Type SimpleErrorType
		Msg  string
	}
	Integer struct {
		Data int
	}
	// InlineBytesData is a length-prefixed binary payload written without a
	// trailing terminator, as used for the full resync snapshot.
	InlineBytesData struct {
		Content []byte
	}
	// SequenceData writes several frames back to back, without an array header.
	SequenceData struct {
		Datas []Data
	}
)

func (SimpleStringData) data()   {}
func (BulkStringData) data()     {}
func (NullBulkStringData) data() {}
func (ArraysData) data()         {}
func (SimpleErrorData) data()    {}
func (Integer) data()            {}
func (InlineBytesData) data()    {}
func (SequenceData) data()       {}

func (d SimpleStringData) String() string {
	return fmt.Sprintf("%s%s%s", string(TypeSimpleString), d.Data, Terminator)
}

func (d BulkStringData) String() string {
	return fmt.Sprintf("%s%d%s%s%s", string(TypeBulkString), len(d.Data), Terminator, d.Data, Terminator)
}

func (d NullBulkStringData) String() string {
	return fmt.Sprintf("%s-1%s", string(TypeBulkString), Terminator)
}

func (d ArraysData) String() string {
	builder := new(strings.Builder)
	builder.WriteByte(byte(TypeArrays))
	fmt.Fprintf(builder, "%d%s", len(d.Datas), Terminator)
	for ele := range slices.Values(d.Datas) {
		builder.WriteString(ele.String())
	}
	return builder.String()
}

func (d SimpleErrorData) String() string {
	if d.Type == SimpleErrorTypeNone {
		return fmt.Sprintf("%s%s%s", string(TypeSimpleError), d.Msg, Terminator)
	}
	return fmt.Sprintf("%s%s %s%s", string(TypeSimpleError), d.Type, d.Msg, Terminator)
}

func (d Integer) String() string {
	return fmt.Sprintf(":%d%s", d.Data, Terminator)
}

func (d InlineBytesData) String() string {
	return fmt.Sprintf("%s%d%s%s", string(TypeBulkString), len(d.Content), Terminator, d.Content)
}

func (d SequenceData) String() string {
	builder := new(strings.Builder)
	for ele := range slices.Values(d.Datas) {
		builder.WriteString(ele.String())
	}
	return builder.String()
}

// Encode returns the wire bytes of data.
func Encode(data Data) []byte {
	return []byte(data.String())
}

// EncodeRequest builds the array-of-bulk-strings frame a client sends.
func EncodeRequest(verb string, args ...string) ArraysData {
	datas := make([]Data, 0, len(args)+1)
	datas = append(datas, BulkStringData{Data: verb})
	datas = append(datas, lo.Map(args, func(arg string, _ int) Data {
		return BulkStringData{Data: arg}
	})...)
	return ArraysData{Datas: datas}
}

// Raw quotes the wire form of data for logging.
func Raw(data Data) string {
	return strconv.Quote(data.String())
}

// Text returns the textual payload of string-like replies.
func Text(data Data) (string, bool) {
	switch d := data.(type) {
	case SimpleStringData:
		return d.Data, true
	case BulkStringData:
		return d.Data, true
	default:
		return "", false
	}
}
