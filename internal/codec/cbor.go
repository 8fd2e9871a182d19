package codec

import (
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborOnce sync.Once
	encMode  cbor.EncMode
	decMode  cbor.DecMode
)

func cborModes() (cbor.EncMode, cbor.DecMode) {
	cborOnce.Do(func() {
		var err error
		encMode, err = cbor.EncOptions{
			Time:    cbor.TimeRFC3339Nano,
			TimeTag: cbor.EncTagRequired,
			Sort:    cbor.SortCanonical,
		}.EncMode()
		if err != nil {
			panic(err)
		}
		decMode, err = cbor.DecOptions{
			TimeTagToAny:   cbor.TimeTagToTime,
			DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		}.DecMode()
		if err != nil {
			panic(err)
		}
	})
	return encMode, decMode
}

// CBOR encodes with RFC 3339 time tags so Date values survive a round trip as time.Time.
type CBOR struct{}

var _ Codec = CBOR{}

func NewCBOR() CBOR {
	return CBOR{}
}

func (CBOR) Marshal(v any) ([]byte, error) {
	em, _ := cborModes()
	return em.Marshal(v)
}

func (CBOR) Unmarshal(data []byte, dst any) error {
	_, dm := cborModes()
	return dm.Unmarshal(data, dst)
}

// RawMessage defers decoding of a CBOR value.
type RawMessage = cbor.RawMessage
