package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pazzo-admin/internal/model"
	"pazzo-admin/internal/resource"
	"pazzo-admin/internal/service"
	"pazzo-admin/pkg/apierror"
	"pazzo-admin/pkg/response"
)

// RecordHandler serves the collection endpoints. Each resource keeps the
// body encoding and image representation configured for it.
type RecordHandler struct {
	records   *service.RecordService
	maxUpload int64
	log       *zap.Logger
}

// NewRecordHandler creates a record handler. maxUpload caps request bodies.
func NewRecordHandler(records *service.RecordService, maxUpload int64, log *zap.Logger) *RecordHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordHandler{records: records, maxUpload: maxUpload, log: log}
}

// Routes mounts one sub-router per configured resource.
func (h *RecordHandler) Routes(r chi.Router) {
	for _, cfg := range h.records.Table().Resources {
		r.Route(cfg.Path, func(r chi.Router) {
			r.Get("/", h.List(cfg))
			r.Post("/", h.Create(cfg))
			r.Put("/{id}", h.Update(cfg))
			r.Delete("/{id}", h.Delete(cfg))
		})
	}
}

// List handles GET <path>. The body is a bare JSON array.
func (h *RecordHandler) List(cfg resource.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := h.records.List(r.Context(), cfg.Key)
		if err != nil {
			h.fail(w, cfg, err)
			return
		}
		out := make([]map[string]interface{}, len(records))
		for i, rec := range records {
			out[i] = wire(rec, cfg)
		}
		response.Raw(w, http.StatusOK, out)
	}
}

// Create handles POST <path>.
func (h *RecordHandler) Create(cfg resource.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := h.decode(w, r, cfg)
		if err != nil {
			h.fail(w, cfg, err)
			return
		}
		rec, err := h.records.Create(r.Context(), cfg.Key, in)
		if err != nil {
			h.fail(w, cfg, err)
			return
		}
		response.Created(w, wire(*rec, cfg))
	}
}

// Update handles PUT <path>/{id}.
func (h *RecordHandler) Update(cfg resource.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := h.decode(w, r, cfg)
		if err != nil {
			h.fail(w, cfg, err)
			return
		}
		rec, err := h.records.Update(r.Context(), cfg.Key, chi.URLParam(r, "id"), in)
		if err != nil {
			h.fail(w, cfg, err)
			return
		}
		response.Raw(w, http.StatusOK, wire(*rec, cfg))
	}
}

// Delete handles DELETE <path>/{id}.
func (h *RecordHandler) Delete(cfg resource.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.records.Delete(r.Context(), cfg.Key, chi.URLParam(r, "id")); err != nil {
			h.fail(w, cfg, err)
			return
		}
		response.Message(w, http.StatusOK, "Item deleted successfully")
	}
}

func (h *RecordHandler) fail(w http.ResponseWriter, cfg resource.Config, err error) {
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		h.log.Error("collection request failed", zap.String("collection", cfg.Key), zap.Error(err))
	}
	response.Error(w, err)
}

// decode reads a multipart or JSON body into a record input.
func (h *RecordHandler) decode(w http.ResponseWriter, r *http.Request, cfg resource.Config) (model.RecordInput, error) {
	if h.maxUpload > 0 {
		// Leave room for the text fields around the image.
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(1<<20))
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return h.decodeMultipart(r)
	case "application/json", "":
		return decodeJSON(r, cfg)
	default:
		return model.RecordInput{}, apierror.BadRequest(fmt.Sprintf("Unsupported content type %q", mediaType))
	}
}

func (h *RecordHandler) decodeMultipart(r *http.Request) (model.RecordInput, error) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.RecordInput{}, apierror.PayloadTooLarge("Request body too large")
		}
		return model.RecordInput{}, apierror.BadRequest("Invalid multipart body")
	}

	in := model.RecordInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}
	price, err := parsePriceField(r.FormValue("price"))
	if err != nil {
		return model.RecordInput{}, err
	}
	in.Price = price

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return model.RecordInput{}, apierror.BadRequest("Invalid image upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return model.RecordInput{}, apierror.BadRequest("Invalid image upload")
	}
	in.ImageData = data
	in.ImageType = header.Header.Get("Content-Type")
	if in.ImageType == "" || in.ImageType == "application/octet-stream" {
		in.ImageType = http.DetectContentType(data)
	}
	return in, nil
}

type jsonRecord struct {
	Name        string          `json:"name"`
	Price       json.RawMessage `json:"price"`
	Description string          `json:"description"`
	Image       json.RawMessage `json:"image"`
}

func decodeJSON(r *http.Request, cfg resource.Config) (model.RecordInput, error) {
	var body jsonRecord
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.RecordInput{}, apierror.PayloadTooLarge("Request body too large")
		}
		return model.RecordInput{}, apierror.BadRequest("Invalid request body")
	}

	price, err := resource.ParsePrice(body.Price)
	if err != nil {
		return model.RecordInput{}, apierror.ValidationError("Price must be a number",
			apierror.FieldError{Field: "price", Message: err.Error()})
	}
	img, err := resource.DecodeImage(body.Image, cfg.ImageMode)
	if err != nil {
		return model.RecordInput{}, apierror.ValidationError("Invalid image",
			apierror.FieldError{Field: "image", Message: err.Error()})
	}

	in := model.RecordInput{
		Name:        body.Name,
		Price:       price,
		Description: body.Description,
	}
	if img != nil {
		in.ImageData = img.Data
		in.ImageType = img.ContentType
		if cfg.ImageMode == resource.ImageBare {
			// bare images carry no type
			in.ImageType = http.DetectContentType(img.Data)
		}
	}
	return in, nil
}

func parsePriceField(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, apierror.ValidationError("Price is required",
			apierror.FieldError{Field: "price", Message: "required"})
	}
	price, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, apierror.ValidationError("Price must be a number",
			apierror.FieldError{Field: "price", Message: "not a number"})
	}
	return price, nil
}

// wire renders rec the way the resource's real backend does.
func wire(rec model.Record, cfg resource.Config) map[string]interface{} {
	r := resource.Record{
		ID:          rec.ID,
		Name:        rec.Name,
		Price:       rec.Price,
		Description: rec.Description,
	}
	if len(rec.ImageData) > 0 {
		ct := rec.ImageType
		if ct == "" {
			ct = resource.DefaultImageContentType
		}
		r.Image = &resource.Image{Data: rec.ImageData, ContentType: ct}
	}
	return resource.EncodeRecord(r, cfg.ImageMode)
}
