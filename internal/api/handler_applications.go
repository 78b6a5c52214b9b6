package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/views"
)

// ListApplications handles GET /api/applications for admins.
func (h *Handler) ListApplications(c *gin.Context) {
	var f views.ApplicationFilter

	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseApplicationStatus(raw)
		if err != nil {
			respondError(c, apperr.Validation("%v", err))
			return
		}
		f.Status = status
	}
	f.HostelID = c.Query("hostel_id")
	f.StudentID = c.Query("student_id")

	if raw := c.Query("since"); raw != "" {
		since, err := parseSince(raw)
		if err != nil {
			respondError(c, apperr.Validation("since must be RFC 3339 or YYYY-MM-DD"))
			return
		}
		f.Since = since
	}

	if sort := c.DefaultQuery("sort", "applied_on"); sort != "applied_on" {
		respondError(c, apperr.Validation("unsupported sort %q", sort))
		return
	}

	var descending bool
	switch c.DefaultQuery("order", "asc") {
	case "asc":
	case "desc":
		descending = true
	default:
		respondError(c, apperr.Validation("order must be asc or desc"))
		return
	}

	c.JSON(http.StatusOK, views.SortByAppliedOn(h.engine.Applications(f), descending))
}

func parseSince(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

type documentPayload struct {
	Name string `json:"name"`
	Data string `json:"data"` // base64
}

type submitRequest struct {
	HostelID  string            `json:"hostelId" form:"hostelId"`
	Gender    string            `json:"gender" form:"gender"`
	Year      int               `json:"year" form:"year"`
	Caste     string            `json:"caste" form:"caste"`
	Branch    string            `json:"branch" form:"branch"`
	DOB       string            `json:"dob" form:"dob"`
	Documents []documentPayload `json:"documents" form:"-"`
}

// SubmitApplication handles POST /api/applications for students. The body is
// JSON with base64 documents, or multipart/form-data with "documents" files.
// A duplicate submission answers 200 with the existing application.
func (h *Handler) SubmitApplication(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, apperr.Validation("invalid request"))
		return
	}

	gender, err := model.ParseGender(req.Gender)
	if err != nil {
		respondError(c, apperr.Validation("%v", err))
		return
	}

	docs, err := h.collectDocuments(c, req.Documents)
	if err != nil {
		respondError(c, err)
		return
	}

	app, created, err := h.engine.Submit(c.Request.Context(), allocation.SubmitRequest{
		StudentID: identity(c).Subject,
		HostelID:  req.HostelID,
		Gender:    gender,
		Year:      req.Year,
		Caste:     req.Caste,
		Branch:    req.Branch,
		DOB:       req.DOB,
		Documents: docs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, app)
}

func (h *Handler) collectDocuments(c *gin.Context, payloads []documentPayload) ([]model.Document, error) {
	var docs []model.Document

	for _, p := range payloads {
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, apperr.Validation("document %s is not valid base64", p.Name)
		}
		doc, err := h.uploads.Encode(bytes.NewReader(data), p.Name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return docs, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperr.Validation("invalid multipart form")
	}
	for _, fh := range form.File["documents"] {
		if fh.Size > h.uploads.MaxBytes() {
			return nil, apperr.Validation("document %s is too large", fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, apperr.Validation("failed to read document %s", fh.Filename)
		}
		doc, err := h.uploads.Encode(f, fh.Filename)
		f.Close()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

type approveRequest struct {
	RoomNumber string `json:"roomNumber"`
	Floor      string `json:"floor"`
}

// ApproveApplication handles POST /api/applications/:application_id/approve.
func (h *Handler) ApproveApplication(c *gin.Context) {
	var req approveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.engine.Approve(c.Request.Context(), c.Param("application_id"), req.RoomNumber, req.Floor, identity(c).Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectApplication handles POST /api/applications/:application_id/reject.
func (h *Handler) RejectApplication(c *gin.Context) {
	var req rejectRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	app, err := h.engine.Reject(c.Request.Context(), c.Param("application_id"), req.Reason, identity(c).Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// bindOptionalJSON decodes a JSON body; an empty body leaves obj untouched so
// the engine reports the missing fields.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid request body: %s", strings.TrimSpace(err.Error()))
	}
	return nil
}
