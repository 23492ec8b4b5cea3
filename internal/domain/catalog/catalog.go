// Package catalog contains the image catalog shapes stored in the KV
// namespace and the list entries derived from them.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Stored value status tags.
const (
	StatusSuccess = "Success"
	StatusFailure = "Failure"
)

// List entry status tags.
const (
	StatusValid = "Valid"
	StatusError = "Error"
)

// Sentinel kinds for decode failures.
var (
	ErrUnknownStatus = errors.New("unknown entry status")
	ErrMissingField  = errors.New("missing required field")
)

// Entry is the value stored under a catalog key. Exactly one of URL or
// Error is meaningful, selected by Status.
type Entry struct {
	Status string
	URL    string
	Error  string
}

// Success builds an entry pointing at a download URL.
func Success(url string) Entry { return Entry{Status: StatusSuccess, URL: url} }

// Failure builds an entry carrying an error message.
func Failure(msg string) Entry { return Entry{Status: StatusFailure, Error: msg} }

// IsFailure reports whether the entry records an error instead of a URL.
func (e Entry) IsFailure() bool { return e.Status == StatusFailure }

type successWire struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

type failureWire struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// MarshalJSON writes the entry in its status-tagged form.
func (e Entry) MarshalJSON() ([]byte, error) {
	switch e.Status {
	case StatusSuccess:
		return json.Marshal(successWire{Status: e.Status, URL: e.URL})
	case StatusFailure:
		return json.Marshal(failureWire{Status: e.Status, Error: e.Error})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, e.Status)
	}
}

// UnmarshalJSON decodes a status-tagged entry. The variant's field must be
// present; unknown tags are rejected.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status string  `json:"status"`
		URL    *string `json:"url"`
		Error  *string `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Status {
	case StatusSuccess:
		if raw.URL == nil {
			return fmt.Errorf("%w: url", ErrMissingField)
		}
		*e = Success(*raw.URL)
	case StatusFailure:
		if raw.Error == nil {
			return fmt.Errorf("%w: error", ErrMissingField)
		}
		*e = Failure(*raw.Error)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStatus, raw.Status)
	}
	return nil
}

// DecodeEntry parses a stored value.
func DecodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Metadata is stored alongside each key and drives listing. A non-nil
// Error marks the image as not downloadable.
type Metadata struct {
	Release  string  `json:"release" yaml:"release" koanf:"release"`
	Arch     string  `json:"arch" yaml:"arch" koanf:"arch"`
	Edition  *string `json:"edition,omitempty" yaml:"edition,omitempty" koanf:"edition"`
	Filename *string `json:"filename,omitempty" yaml:"filename,omitempty" koanf:"filename"`
	Checksum *string `json:"checksum,omitempty" yaml:"checksum,omitempty" koanf:"checksum"`
	Error    *string `json:"error,omitempty" yaml:"error,omitempty" koanf:"error"`
}

// DecodeMetadata parses listing metadata. release and arch are required;
// a JSON null or absent document is reported as an error.
func DecodeMetadata(data []byte) (Metadata, error) {
	var raw struct {
		Release  *string `json:"release"`
		Arch     *string `json:"arch"`
		Edition  *string `json:"edition"`
		Filename *string `json:"filename"`
		Checksum *string `json:"checksum"`
		Error    *string `json:"error"`
	}
	if len(data) == 0 {
		return Metadata{}, fmt.Errorf("%w: metadata", ErrMissingField)
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Metadata{}, err
	}
	switch {
	case raw.Release == nil:
		return Metadata{}, fmt.Errorf("%w: release", ErrMissingField)
	case raw.Arch == nil:
		return Metadata{}, fmt.Errorf("%w: arch", ErrMissingField)
	}
	return Metadata{
		Release:  *raw.Release,
		Arch:     *raw.Arch,
		Edition:  raw.Edition,
		Filename: raw.Filename,
		Checksum: raw.Checksum,
		Error:    raw.Error,
	}, nil
}

// ListEntry is one row of the /list response.
type ListEntry struct {
	Release string
	Edition *string
	Arch    string

	Status   string
	URL      string
	Filename string
	Checksum *string
	Error    string
}

type validWire struct {
	Release  string  `json:"release"`
	Edition  *string `json:"edition"`
	Arch     string  `json:"arch"`
	Status   string  `json:"status"`
	URL      string  `json:"url"`
	Filename string  `json:"filename"`
	Checksum *string `json:"checksum"`
}

type errorWire struct {
	Release string  `json:"release"`
	Edition *string `json:"edition"`
	Arch    string  `json:"arch"`
	Status  string  `json:"status"`
	Error   string  `json:"error"`
}

// MarshalJSON flattens the status variant into the entry object.
func (l ListEntry) MarshalJSON() ([]byte, error) {
	switch l.Status {
	case StatusValid:
		return marshalRaw(validWire{
			Release:  l.Release,
			Edition:  l.Edition,
			Arch:     l.Arch,
			Status:   l.Status,
			URL:      l.URL,
			Filename: l.Filename,
			Checksum: l.Checksum,
		})
	case StatusError:
		return marshalRaw(errorWire{
			Release: l.Release,
			Edition: l.Edition,
			Arch:    l.Arch,
			Status:  l.Status,
			Error:   l.Error,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, l.Status)
	}
}

// marshalRaw encodes v without HTML escaping so redirect links keep their
// literal '&'.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON reads either variant back; used by the probe client.
func (l *ListEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Release  string  `json:"release"`
		Edition  *string `json:"edition"`
		Arch     string  `json:"arch"`
		Status   string  `json:"status"`
		URL      string  `json:"url"`
		Filename string  `json:"filename"`
		Checksum *string `json:"checksum"`
		Error    string  `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Status != StatusValid && raw.Status != StatusError {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, raw.Status)
	}
	*l = ListEntry(raw)
	return nil
}

// NewListEntry derives a list row for the key's denomination.
func NewListEntry(os, denom string, md Metadata) ListEntry {
	e := ListEntry{
		Release: md.Release,
		Edition: md.Edition,
		Arch:    md.Arch,
	}
	if md.Error != nil {
		e.Status = StatusError
		e.Error = *md.Error
		return e
	}
	e.Status = StatusValid
	e.URL = RedirectLink(os, denom)
	if md.Filename != nil {
		e.Filename = *md.Filename
	}
	e.Checksum = md.Checksum
	return e
}
