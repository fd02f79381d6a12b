package accent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"
)

// EncoderFormat is the serialization of a label encoder file.
type EncoderFormat string

const (
	EncoderJSON    EncoderFormat = "json"
	EncoderYAML    EncoderFormat = "yaml"
	EncoderMsgpack EncoderFormat = "msgpack"
)

// EncoderFormatFor picks the format from a file extension.
func EncoderFormatFor(name string) (EncoderFormat, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return EncoderJSON, nil
	case ".yaml", ".yml":
		return EncoderYAML, nil
	case ".msgpack", ".mpk":
		return EncoderMsgpack, nil
	default:
		return "", fmt.Errorf("accent: unknown label encoder format for %q", name)
	}
}

// Encoder maps class indices to accent names. The index of a name is its
// position in the training label set. It is immutable after construction.
type Encoder struct {
	classes []string
	index   map[string]int
}

// encoderDoc is the keyed form of an encoder file.
type encoderDoc struct {
	Classes []string `json:"classes" yaml:"classes" msgpack:"classes"`
}

// NewEncoder creates an Encoder over classes. Names must be non-empty and
// unique.
func NewEncoder(classes []string) (*Encoder, error) {
	if len(classes) == 0 {
		return nil, errors.New("accent: label encoder has no classes")
	}
	e := &Encoder{
		classes: append([]string(nil), classes...),
		index:   make(map[string]int, len(classes)),
	}
	for i, c := range e.classes {
		if c == "" {
			return nil, fmt.Errorf("accent: label encoder class %d is empty", i)
		}
		if _, dup := e.index[c]; dup {
			return nil, fmt.Errorf("accent: label encoder class %q is duplicated", c)
		}
		e.index[c] = i
	}
	return e, nil
}

// LoadEncoder reads an encoder written either as a bare list of class names
// or as a document with a "classes" list.
func LoadEncoder(r io.Reader, format EncoderFormat) (*Encoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("accent: read label encoder: %w", err)
	}
	classes, err := decodeClasses(data, format)
	if err != nil {
		return nil, fmt.Errorf("accent: decode %s label encoder: %w", format, err)
	}
	return NewEncoder(classes)
}

func decodeClasses(data []byte, format EncoderFormat) ([]string, error) {
	var (
		list []string
		doc  encoderDoc
	)
	switch format {
	case EncoderJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			return list, json.Unmarshal(trimmed, &list)
		}
		return doc.Classes, json.Unmarshal(trimmed, &doc)
	case EncoderYAML:
		if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
			return list, nil
		}
		err := yaml.Unmarshal(data, &doc)
		return doc.Classes, err
	case EncoderMsgpack:
		if err := msgpack.Unmarshal(data, &list); err == nil && len(list) > 0 {
			return list, nil
		}
		err := msgpack.Unmarshal(data, &doc)
		return doc.Classes, err
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Marshal writes the encoder in the keyed document form.
func (e *Encoder) Marshal(format EncoderFormat) ([]byte, error) {
	doc := encoderDoc{Classes: e.Classes()}
	switch format {
	case EncoderJSON:
		return json.Marshal(doc)
	case EncoderYAML:
		return yaml.Marshal(doc)
	case EncoderMsgpack:
		return msgpack.Marshal(doc)
	default:
		return nil, fmt.Errorf("accent: unsupported format %q", format)
	}
}

// Classes returns a copy of the class names in index order.
func (e *Encoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// Len returns the number of classes.
func (e *Encoder) Len() int {
	return len(e.classes)
}

// Label returns the name of class i.
func (e *Encoder) Label(i int) (string, bool) {
	if i < 0 || i >= len(e.classes) {
		return "", false
	}
	return e.classes[i], true
}

// Index returns the index of the named class.
func (e *Encoder) Index(name string) (int, bool) {
	i, ok := e.index[name]
	return i, ok
}
