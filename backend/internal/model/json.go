package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// refJSON is the wire form of reference and deletion entries
type refJSON struct {
	RefID  *int64  `json:"ref_id,omitempty"`
	RefURI *string `json:"ref_uri,omitempty"`
	DelID  *int64  `json:"del_id,omitempty"`
}

func (r refJSON) isSet() bool {
	return r.RefID != nil || r.RefURI != nil || r.DelID != nil
}

// MarshalJSON encodes the children as an object keyed by comp def URI, in insertion order.
// Lists become arrays; references become {"ref_id":n}, {"ref_uri":"..."} or {"del_id":n}.
func (c *ChildTopicsModel) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		e := c.entries[k]
		if e.multi {
			buf.WriteByte('[')
			for j, t := range e.many {
				if j > 0 {
					buf.WriteByte(',')
				}
				if err := encodeChild(&buf, t); err != nil {
					return nil, err
				}
			}
			buf.WriteByte(']')
			continue
		}
		if err := encodeChild(&buf, e.one); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeChild(buf *bytes.Buffer, t *RelatedTopicModel) error {
	var v interface{} = t
	if t != nil {
		switch t.Ref {
		case RefByID:
			id := t.ID
			v = refJSON{RefID: &id}
		case RefByURI:
			uri := t.URI
			v = refJSON{RefURI: &uri}
		case RefDeletion:
			id := t.ID
			v = refJSON{DelID: &id}
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// UnmarshalJSON decodes the object form produced by MarshalJSON. Key order is kept.
// A bare scalar is accepted as shorthand for a simple child value.
func (c *ChildTopicsModel) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("child topics must be a JSON object")
	}

	out := NewChildTopicsModel()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("child %q: %w", key, err)
		}

		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(raw, &items); err != nil {
				return fmt.Errorf("child %q: %w", key, err)
			}
			out.entry(key).multi = true
			for _, item := range items {
				t, err := decodeChild(key, item)
				if err != nil {
					return err
				}
				out.Add(key, t)
			}
			continue
		}

		t, err := decodeChild(key, raw)
		if err != nil {
			return err
		}
		out.Set(key, t)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = *out
	return nil
}

func decodeChild(compDefURI string, raw json.RawMessage) (*RelatedTopicModel, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		var v SimpleValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("child %q: %w", compDefURI, err)
		}
		return valueEntry(compDefURI, v), nil
	}

	var ref refJSON
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("child %q: %w", compDefURI, err)
	}
	if ref.isSet() {
		switch {
		case ref.DelID != nil:
			return refEntry(RefDeletion, *ref.DelID, ""), nil
		case ref.RefID != nil:
			return refEntry(RefByID, *ref.RefID, ""), nil
		default:
			return refEntry(RefByURI, UnassignedID, *ref.RefURI), nil
		}
	}

	t := &RelatedTopicModel{TopicModel: TopicModel{DMXObjectModel{ID: UnassignedID}}}
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("child %q: %w", compDefURI, err)
	}
	if t.TypeURI == "" {
		t.TypeURI = ChildTypeURIOf(compDefURI)
	}
	return t, nil
}
