package config

import "github.com/rsms/go-json"

// decoder is a thin field-at-a-time wrapper around go-json.Reader, in the
// same style as the ent package's own JsonDecoder: known fields are read by
// name through a map lookup on Key(), everything else is Discard()ed so that
// unrecognized keys in a config file are ignored rather than rejected.
type decoder struct {
	json.Reader
}

func newDecoder(data []byte) *decoder {
	d := &decoder{}
	d.ResetBytes(data)
	return d
}

func (d *decoder) object(fields map[string]func()) error {
	d.ObjectStart()
	for d.More() {
		k := d.Key()
		if fn, ok := fields[k]; ok {
			fn()
		} else {
			d.Discard()
		}
	}
	return d.Reader.Err
}

func (d *decoder) stringArray() []string {
	var out []string
	d.ArrayStart()
	for d.More() {
		out = append(out, d.Str())
	}
	return out
}
