package resp

const (
	Terminator = "\r\n"
)

// RESP2 datatype prefixes understood by this server.
type DataType byte

const (
	TypeSimpleString DataType = '+'
	TypeSimpleError  DataType = '-'
	TypeIntegers     DataType = ':'
	TypeBulkString   DataType = '$'
	TypeArrays       DataType = '*'
)

type SimpleErrorType string

const (
	// SimpleErrorTypeNone writes the message verbatim after the '-' prefix.
	SimpleErrorTypeNone    SimpleErrorType = ""
	SimpleErrorTypeGeneric SimpleErrorType = "ERR"
)
