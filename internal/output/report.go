package output

import "github.com/dbus-txt/dbus-txt/pkg/model"

// Report is the serialisable form of a discovery result, shared by the
// JSON and CBOR renderers.
type Report struct {
	Bus         model.Bus       `json:"bus"`
	Interrupted bool            `json:"interrupted,omitempty"`
	Services    []ServiceReport `json:"services"`
}

type ServiceReport struct {
	Name        string             `json:"name"`
	Kind        model.NameKind     `json:"kind"`
	Activatable bool               `json:"activatable,omitempty"`
	Running     bool               `json:"running"`
	Process     *model.ProcessInfo `json:"process,omitempty"`
	Error       string             `json:"error,omitempty"`
	Root        *model.ObjectNode  `json:"root,omitempty"`
}

func NewReport(r model.Result) Report {
	rep := Report{
		Bus:         r.Bus,
		Interrupted: r.Interrupted,
		Services:    make([]ServiceReport, 0, len(r.Services)),
	}
	for _, s := range r.Services {
		sr := ServiceReport{
			Name:        s.Bus.Name,
			Kind:        s.Bus.Kind,
			Activatable: s.Bus.Activatable,
			Running:     s.Running,
			Root:        s.Root,
		}
		if p := s.Process(); p.Resolved() {
			sr.Process = &p
		}
		if s.Err != nil {
			sr.Error = s.Err.Error()
		}
		rep.Services = append(rep.Services, sr)
	}
	return rep
}
