package output

import (
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/dbus-txt/dbus-txt/pkg/model"
)

// encMode uses Core Deterministic Encoding, so an unchanged bus always
// produces identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("output: CBOR encoder initialization failed: " + err.Error())
	}
}

// ToCBOR encodes the report form of r. Field names follow the json tags.
func ToCBOR(r model.Result) ([]byte, error) {
	return encMode.Marshal(NewReport(r))
}

func RenderCBOR(w io.Writer, r model.Result) error {
	data, err := ToCBOR(r)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
