package output

import (
	"encoding/json"
	"io"

	"github.com/dbus-txt/dbus-txt/pkg/model"
)

func ToJSON(r model.Result) (string, error) {
	data, err := json.MarshalIndent(NewReport(r), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func RenderJSON(w io.Writer, r model.Result) error {
	data, err := ToJSON(r)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, data+"\n")
	return err
}
