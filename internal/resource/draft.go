package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"pazzo-admin/pkg/apierror"
)

// MaxImageBytes is the upload ceiling for a chosen image.
const MaxImageBytes = 5 << 20

// ImageFile is an image picked by the user, not yet uploaded.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// CheckImage validates a chosen file: an image type both by declaration and
// by content, no larger than MaxImageBytes.
func CheckImage(f ImageFile) error {
	if len(f.Data) == 0 {
		return apierror.ValidationError("Please select a valid image file.",
			apierror.FieldError{Field: "image", Message: "empty file"})
	}
	if !strings.HasPrefix(f.ContentType, "image/") ||
		!strings.HasPrefix(http.DetectContentType(f.Data), "image/") {
		return apierror.ValidationError("Please select a valid image file.",
			apierror.FieldError{Field: "image", Message: "not an image"})
	}
	if len(f.Data) > MaxImageBytes {
		return apierror.ValidationError("Image must be smaller than 5MB.",
			apierror.FieldError{Field: "image", Message: "too large"})
	}
	return nil
}

// Draft is the form's local copy of one record. Price holds the text as
// entered and is parsed on submit.
type Draft struct {
	ID          string
	Name        string
	Price       string
	Description string
	Image       *ImageFile
	// Existing is the image already stored for the record being edited.
	Existing *Image
}

// DraftFrom populates a draft from a snapshot entry.
func DraftFrom(r Record) Draft {
	return Draft{
		ID:          r.ID,
		Name:        r.Name,
		Price:       strconv.FormatFloat(r.Price, 'f', -1, 64),
		Description: r.Description,
		Existing:    r.Image,
	}
}

// Clone returns a deep copy so callers cannot alias the image buffers.
func (d Draft) Clone() Draft {
	out := d
	if d.Image != nil {
		img := *d.Image
		img.Data = append([]byte(nil), d.Image.Data...)
		out.Image = &img
	}
	if d.Existing != nil {
		img := *d.Existing
		img.Data = append([]byte(nil), d.Existing.Data...)
		out.Existing = &img
	}
	return out
}

// Preview returns a data: URI for the chosen image, or the stored one.
func (d Draft) Preview() string {
	if d.Image != nil {
		return (&Image{Data: d.Image.Data, ContentType: d.Image.ContentType}).DataURI()
	}
	return d.Existing.DataURI()
}

// Validate checks required fields for cfg and returns the parsed price.
func (d Draft) Validate(cfg Config) (float64, error) {
	var details []apierror.FieldError
	add := func(field, msg string) {
		details = append(details, apierror.FieldError{Field: field, Message: msg})
	}

	if strings.TrimSpace(d.Name) == "" {
		add("name", "Name is required.")
	}

	var price float64
	if strings.TrimSpace(d.Price) == "" {
		add("price", "Price is required.")
	} else {
		v, err := strconv.ParseFloat(strings.TrimSpace(d.Price), 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			add("price", "Price must be a valid non-negative number.")
		}
		price = v
	}

	if strings.TrimSpace(d.Description) == "" {
		add("description", "Description is required.")
	}

	if d.ID == "" && cfg.ImageRequiredOnCreate && d.Image == nil {
		add("image", fmt.Sprintf("Image is required for new %s items.", cfg.Label))
	}

	if len(details) > 0 {
		return 0, apierror.ValidationError(details[0].Message, details...)
	}
	return price, nil
}

// Payload is an encoded create/update body.
type Payload struct {
	Body        io.Reader
	ContentType string
}

// Encode builds the outbound body in cfg's encoding. The identifier never
// appears in the body; updates carry it only in the URL.
func (d Draft) Encode(cfg Config, price float64) (Payload, error) {
	switch cfg.Encoding {
	case EncodingMultipart:
		return d.encodeMultipart(price)
	case EncodingJSON:
		return d.encodeJSON(cfg, price)
	default:
		return Payload{}, fmt.Errorf("unknown encoding %q", cfg.Encoding)
	}
}

func (d Draft) encodeMultipart(price float64) (Payload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"name", d.Name},
		{"price", strconv.FormatFloat(price, 'f', -1, 64)},
		{"description", d.Description},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return Payload{}, fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if d.Image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, fileName(d.Image.Name)))
		h.Set("Content-Type", d.Image.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return Payload{}, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(d.Image.Data); err != nil {
			return Payload{}, fmt.Errorf("failed to write image part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return Payload{}, fmt.Errorf("failed to close multipart body: %w", err)
	}
	return Payload{Body: &buf, ContentType: mw.FormDataContentType()}, nil
}

type jsonBody struct {
	Name        string      `json:"name"`
	Price       float64     `json:"price"`
	Description string      `json:"description"`
	Image       interface{} `json:"image,omitempty"`
}

func (d Draft) encodeJSON(cfg Config, price float64) (Payload, error) {
	body := jsonBody{
		Name:        d.Name,
		Price:       price,
		Description: d.Description,
	}
	if d.Image != nil {
		body.Image = EncodeImage(&Image{Data: d.Image.Data, ContentType: d.Image.ContentType}, cfg.ImageMode)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to encode body: %w", err)
	}
	return Payload{Body: bytes.NewReader(data), ContentType: "application/json"}, nil
}

func fileName(name string) string {
	if name == "" {
		return "image"
	}
	return name
}
