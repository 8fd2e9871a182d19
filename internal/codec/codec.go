// Package codec defines the wire encoding used by transports that serialize nodes, change
// sets and node type definitions.
package codec

// Codec turns values into bytes and back. Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, dst any) error
}
