package resource

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// DefaultImageContentType is assumed for bare base64 images, which carry no
// type information on the wire.
const DefaultImageContentType = "image/jpeg"

// ImageMode selects how a resource's backend represents images on GET.
type ImageMode string

const (
	// ImageTagged is {"data": "<base64>", "contentType": "<type>"}.
	ImageTagged ImageMode = "tagged"
	// ImageBare is a plain base64 string.
	ImageBare ImageMode = "bare"
)

// Image is a decoded binary image with its content type.
type Image struct {
	Data        []byte
	ContentType string
}

// DataURI renders the image as an embeddable data: URI.
func (i *Image) DataURI() string {
	if i == nil || len(i.Data) == 0 {
		return ""
	}
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Record is one persisted or unsaved resource entry. ID is empty until the
// remote endpoint assigns one.
type Record struct {
	ID          string
	Name        string
	Price       float64
	Description string
	Image       *Image
}

// Saved reports whether the record carries a server-assigned identifier.
func (r Record) Saved() bool {
	return r.ID != ""
}

type wireRecord struct {
	ID          string          `json:"_id,omitempty"`
	Name        string          `json:"name"`
	Price       json.RawMessage `json:"price"`
	Description string          `json:"description"`
	Image       json.RawMessage `json:"image,omitempty"`
}

type taggedImage struct {
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

// DecodeRecords parses a collection body. Images must use mode; a record
// whose image is in the other representation is an error.
func DecodeRecords(body []byte, mode ImageMode) ([]Record, error) {
	var wire []wireRecord
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}

	records := make([]Record, 0, len(wire))
	for i, w := range wire {
		rec, err := w.decode(mode)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (w wireRecord) decode(mode ImageMode) (Record, error) {
	price, err := ParsePrice(w.Price)
	if err != nil {
		return Record{}, err
	}
	img, err := DecodeImage(w.Image, mode)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:          w.ID,
		Name:        w.Name,
		Price:       price,
		Description: w.Description,
		Image:       img,
	}, nil
}

// ParsePrice accepts a JSON number or a numeric string; some backends send
// prices as strings.
func ParsePrice(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("invalid price: %w", err)
		}
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("invalid price %q", s)
		}
		return v, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("invalid price: %w", err)
	}
	return v, nil
}

// DecodeImage parses an image field in mode. A missing or empty image
// decodes to nil.
func DecodeImage(raw json.RawMessage, mode ImageMode) (*Image, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch mode {
	case ImageBare:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("image: expected base64 string")
		}
		if s == "" {
			return nil, nil
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
		return &Image{Data: data, ContentType: DefaultImageContentType}, nil
	case ImageTagged:
		if raw[0] != '{' {
			return nil, fmt.Errorf("image: expected {data, contentType} object")
		}
		var t taggedImage
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
		if t.Data == "" || t.ContentType == "" {
			return nil, nil
		}
		data, err := base64.StdEncoding.DecodeString(t.Data)
		if err != nil {
			return nil, fmt.Errorf("image: %w", err)
		}
		return &Image{Data: data, ContentType: t.ContentType}, nil
	default:
		return nil, fmt.Errorf("unknown image mode %q", mode)
	}
}

// EncodeImage renders img in mode for a JSON body. It returns nil for a
// missing image so the field encodes as null.
func EncodeImage(img *Image, mode ImageMode) interface{} {
	if img == nil || len(img.Data) == 0 {
		return nil
	}
	data := base64.StdEncoding.EncodeToString(img.Data)
	if mode == ImageTagged {
		return taggedImage{Data: data, ContentType: img.ContentType}
	}
	return data
}

// EncodeRecord renders a record the way a backend using mode would return it.
func EncodeRecord(r Record, mode ImageMode) map[string]interface{} {
	return map[string]interface{}{
		"_id":         r.ID,
		"name":        r.Name,
		"price":       r.Price,
		"description": r.Description,
		"image":       EncodeImage(r.Image, mode),
	}
}
