package commons

// Entry represents a single key/value pair held in NVS.
type Entry struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`

	// Value is the string form of the stored value. Numbers are written in base 10, binary values are hex encoded.
	Value string `json:"value"`

	// DType is the storage type of the value.
	DType DType `json:"dtype"`

	// Size is the stored size in bytes.
	Size int `json:"size"`
}

// Listing is the JSON form of a namespace (or of every namespace) returned by the NVS endpoint.
type Listing struct {
	Contents []Entry `json:"contents"`
}

// EditRequest is the body of an edit: a single key mapped to its new value.
type EditRequest map[string]string

// DType represents the storage type of an NVS entry.
type DType string

const (
	DTypeU8     DType = "uint8"
	DTypeI8     DType = "int8"
	DTypeU16    DType = "uint16"
	DTypeI16    DType = "int16"
	DTypeU32    DType = "uint32"
	DTypeI32    DType = "int32"
	DTypeU64    DType = "uint64"
	DTypeI64    DType = "int64"
	DTypeString DType = "string"
	DTypeBinary DType = "binary"
)

// IntSize returns the width in bytes of an integer type, and whether the type is signed.
// Non-integer types return a width of 0.
func (d DType) IntSize() (size int, signed bool) {
	switch d {
	case DTypeU8:
		return 1, false
	case DTypeI8:
		return 1, true
	case DTypeU16:
		return 2, false
	case DTypeI16:
		return 2, true
	case DTypeU32:
		return 4, false
	case DTypeI32:
		return 4, true
	case DTypeU64:
		return 8, false
	case DTypeI64:
		return 8, true
	}
	return 0, false
}
