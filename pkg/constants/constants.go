package constants

import "time"

const (
	RequestIDLength  = 16
	CloseMessageCode = 1000
	DefaultWSTimeout = 30 * time.Second
)

const (
	DefaultWorkspace = "default"
	RootPath         = "/"
)

var (
	MemoryScheme          = "mem"
	SQLiteScheme          = "sqlite"
	FileScheme            = "file"
	WebsocketScheme       = "ws"
	WebsocketSecureScheme = "wss"
)

// Well-known item and type names.
const (
	PropPrimaryType = "jcr:primaryType"
	PropMixinTypes  = "jcr:mixinTypes"
	PropUUID        = "jcr:uuid"

	TypeBase          = "nt:base"
	TypeUnstructured  = "nt:unstructured"
	TypeReferenceable = "mix:referenceable"
	RootNodeType      = "rep:root"
)
