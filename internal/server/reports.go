package server

import (
	"errors"
	"io"
	"net/http"

	"oceanwatch/pkg/types"

	"github.com/alexedwards/flow"
)

// uploadOverhead leaves room for the text fields and multipart framing on
// top of the attachment limit.
const uploadOverhead = 1 << 20

type envelope struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message,omitempty"`
	MissingFields []string `json:"missingFields,omitempty"`
	InvalidFields []string `json:"invalidFields,omitempty"`
	Data          any      `json:"data,omitempty"`
}

func (s *Service) handleUploadReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, types.MaxMediaBytes+uploadOverhead)

	err := r.ParseMultipartForm(32 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeIngestError(w, &types.PayloadTooLargeError{Limit: types.MaxMediaBytes})
			return
		}
		s.logger.WithError(err).Warn("failed to parse report upload")
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Malformed request body"})
		return
	}

	var payload types.ReportPayload
	if err := decoder.Decode(&payload, r.Form); err != nil {
		s.logger.WithError(err).Warn("failed to decode report upload")
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Malformed request body"})
		return
	}

	att, err := readAttachment(r)
	if err != nil {
		s.logger.WithError(err).Warn("failed to read report attachment")
		writeJSON(w, http.StatusBadRequest, envelope{Message: "Malformed attachment"})
		return
	}

	report, err := s.ingest.CreateReport(ctx, payload, att)
	if err != nil {
		s.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Report submitted successfully",
		Data:    report,
	})
}

func (s *Service) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.ingest.ListReports(r.Context())
	if err != nil {
		s.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: reports})
}

func (s *Service) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := flow.Param(r.Context(), "id")

	report, err := s.ingest.ReportByID(r.Context(), id)
	if err != nil {
		s.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: report})
}

func (s *Service) writeIngestError(w http.ResponseWriter, err error) {
	var (
		validationErr  *types.ValidationError
		unsupportedErr *types.UnsupportedMediaError
		tooLargeErr    *types.PayloadTooLargeError
	)

	switch {
	case errors.As(err, &validationErr):
		missing := validationErr.MissingFields
		if missing == nil {
			missing = []string{}
		}
		message := "All required fields must be provided"
		if len(validationErr.MissingFields) == 0 {
			message = "Some fields have invalid values"
		}
		// missingFields is always present so clients can rely on the key
		body := map[string]any{
			"success":       false,
			"message":       message,
			"missingFields": missing,
		}
		if len(validationErr.InvalidFields) > 0 {
			body["invalidFields"] = validationErr.InvalidFields
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &unsupportedErr):
		writeJSON(w, http.StatusUnsupportedMediaType, envelope{Message: "Only image and video files are allowed"})
	case errors.As(err, &tooLargeErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, envelope{Message: "Attachment exceeds the 10MB limit"})
	case errors.Is(err, types.ErrReportNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Message: "Report not found"})
	default:
		s.logger.WithError(err).Error("report request failed")
		writeJSON(w, http.StatusInternalServerError, envelope{Message: "Server error"})
	}
}

// readAttachment returns the optional "media" file part. A request without
// one yields a nil attachment.
func readAttachment(r *http.Request) (*types.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	// One byte past the limit is enough to tell the service it is too large
	data, err := io.ReadAll(io.LimitReader(file, types.MaxMediaBytes+1))
	if err != nil {
		return nil, err
	}

	return &types.Attachment{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}, nil
}
