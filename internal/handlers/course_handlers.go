package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/models"
	"github.com/ganatech/academy/internal/service"
)

// multipart overhead allowed on top of the PDF limit
const formOverhead = 1 << 20

type CourseHandlers struct {
	courseService *service.CourseService
	maxBytes      int64
	logger        *logrus.Logger
}

func NewCourseHandlers(courseService *service.CourseService, maxBytes int64, logger *logrus.Logger) *CourseHandlers {
	return &CourseHandlers{
		courseService: courseService,
		maxBytes:      maxBytes,
		logger:        logger,
	}
}

type CourseListResponse struct {
	Success bool            `json:"success"`
	Courses []models.Course `json:"courses"`
}

type CourseResponse struct {
	Success bool           `json:"success"`
	Course  *models.Course `json:"course"`
}

func (h *CourseHandlers) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courseService.List(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, CourseListResponse{Success: true, Courses: courses})
}

func (h *CourseHandlers) Get(w http.ResponseWriter, r *http.Request) {
	course, err := h.courseService.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, CourseResponse{Success: true, Course: course})
}

func (h *CourseHandlers) Create(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := h.parseCourseForm(w, r)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	defer cleanup()

	course, err := h.courseService.Create(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, CourseResponse{Success: true, Course: course})
}

func (h *CourseHandlers) Update(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := h.parseCourseForm(w, r)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	defer cleanup()

	course, err := h.courseService.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, CourseResponse{Success: true, Course: course})
}

func (h *CourseHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.courseService.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Course deleted successfully"})
}

// parseCourseForm reads course fields from a multipart or urlencoded form.
// curriculum and whyChoose arrive as JSON strings; the optional file part is "pdf".
func (h *CourseHandlers) parseCourseForm(w http.ResponseWriter, r *http.Request) (service.CourseInput, func(), error) {
	var in service.CourseInput
	cleanup := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return in, cleanup, &service.Error{Code: service.CodeValidation, Message: fmt.Sprintf("PDF exceeds the %d MB limit", h.maxBytes>>20)}
			}
			return in, cleanup, &service.Error{Code: service.CodeValidation, Message: "Invalid form data", Err: err}
		}
		cleanup = func() { r.MultipartForm.RemoveAll() }
	} else if err := r.ParseForm(); err != nil {
		return in, cleanup, &service.Error{Code: service.CodeValidation, Message: "Invalid form data", Err: err}
	}

	in.Title = formValue(r, "title")
	in.Description = formValue(r, "description")
	in.AboutCourse = formValue(r, "aboutCourse")

	if raw := formValue(r, "curriculum"); raw != nil && strings.TrimSpace(*raw) != "" {
		var modules []models.Module
		if err := json.Unmarshal([]byte(*raw), &modules); err != nil {
			return in, cleanup, &service.Error{Code: service.CodeValidation, Message: "curriculum must be a JSON array", Err: err}
		}
		in.Curriculum = &modules
	}
	if raw := formValue(r, "whyChoose"); raw != nil && strings.TrimSpace(*raw) != "" {
		var reasons []models.WhyChoose
		if err := json.Unmarshal([]byte(*raw), &reasons); err != nil {
			return in, cleanup, &service.Error{Code: service.CodeValidation, Message: "whyChoose must be a JSON array", Err: err}
		}
		in.WhyChoose = &reasons
	}

	if r.MultipartForm != nil {
		file, header, err := r.FormFile("pdf")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			return in, cleanup, &service.Error{Code: service.CodeValidation, Message: "Invalid PDF upload", Err: err}
		}
		if err == nil {
			prev := cleanup
			cleanup = func() {
				file.Close()
				prev()
			}
			in.PDF = &service.Upload{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			}
		}
	}

	return in, cleanup, nil
}

func formValue(r *http.Request, key string) *string {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
