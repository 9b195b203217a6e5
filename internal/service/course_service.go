package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/models"
	"github.com/ganatech/academy/internal/repository"
	"github.com/ganatech/academy/internal/storage"
)

const pdfContentType = "application/pdf"

// Upload is a course document received from a client.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CourseInput carries course fields; nil fields are left untouched on update.
type CourseInput struct {
	Title       *string
	Description *string
	AboutCourse *string
	WhyChoose   *[]models.WhyChoose
	Curriculum  *[]models.Module
	PDF         *Upload
}

type CourseService struct {
	courses  repository.CourseRepository
	files    storage.FileStore
	maxBytes int64
	logger   *logrus.Logger
	now      func() time.Time
}

func NewCourseService(courses repository.CourseRepository, files storage.FileStore, maxBytes int64, logger *logrus.Logger) *CourseService {
	return &CourseService{
		courses:  courses,
		files:    files,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.FindAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list courses")
		return nil, upstream("Failed to fetch courses", err)
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}

func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("Failed to load course")
		return nil, upstream("Failed to fetch course", err)
	}
	if course == nil {
		return nil, errCourseNotFound
	}
	return course, nil
}

func (s *CourseService) Create(ctx context.Context, in CourseInput) (*models.Course, error) {
	course := &models.Course{WhyChoose: []models.WhyChoose{}, Curriculum: []models.Module{}}
	if err := s.apply(course, in); err != nil {
		return nil, err
	}
	if course.Title == "" || course.Description == "" {
		return nil, newError(CodeValidation, "Title and description are required", nil)
	}

	stored, err := s.storePDF(ctx, in.PDF)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		course.PDFURL, course.PDFKey = stored.URL, stored.Key
	}

	if err := s.courses.Create(ctx, course); err != nil {
		s.logger.WithError(err).Error("Failed to create course")
		s.removeFile(ctx, course.PDFKey)
		return nil, upstream("Failed to create course", err)
	}

	s.logger.WithField("id", course.ID).Info("Course created")
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, id string, in CourseInput) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(course, in); err != nil {
		return nil, err
	}
	if course.Title == "" || course.Description == "" {
		return nil, newError(CodeValidation, "Title and description cannot be empty", nil)
	}

	stored, err := s.storePDF(ctx, in.PDF)
	if err != nil {
		return nil, err
	}
	oldKey := ""
	if stored != nil {
		oldKey = course.PDFKey
		course.PDFURL, course.PDFKey = stored.URL, stored.Key
	}

	if err := s.courses.Save(ctx, course); err != nil {
		if stored != nil {
			s.removeFile(ctx, stored.Key)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errCourseNotFound
		}
		s.logger.WithError(err).WithField("id", id).Error("Failed to update course")
		return nil, upstream("Failed to update course", err)
	}

	s.removeFile(ctx, oldKey)
	return course, nil
}

func (s *CourseService) Delete(ctx context.Context, id string) error {
	course, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = s.courses.DeleteByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errCourseNotFound
	}
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("Failed to delete course")
		return upstream("Failed to delete course", err)
	}

	s.removeFile(ctx, course.PDFKey)
	s.logger.WithField("id", id).Info("Course deleted")
	return nil
}

func (s *CourseService) apply(course *models.Course, in CourseInput) error {
	if in.Title != nil {
		course.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		course.Description = strings.TrimSpace(*in.Description)
	}
	if in.AboutCourse != nil {
		course.AboutCourse = strings.TrimSpace(*in.AboutCourse)
	}
	if in.WhyChoose != nil {
		course.WhyChoose = *in.WhyChoose
	}
	if in.Curriculum != nil {
		for i, m := range *in.Curriculum {
			if strings.TrimSpace(m.Title) == "" {
				return newError(CodeValidation, fmt.Sprintf("Curriculum module %d needs a title", i+1), nil)
			}
		}
		course.Curriculum = *in.Curriculum
	}
	return nil
}

func (s *CourseService) storePDF(ctx context.Context, upload *Upload) (*storage.StoredFile, error) {
	if upload == nil {
		return nil, nil
	}
	if upload.ContentType != pdfContentType {
		return nil, newError(CodeValidation, "Only PDF files are allowed", nil)
	}
	if s.maxBytes > 0 && upload.Size > s.maxBytes {
		return nil, newError(CodeValidation, fmt.Sprintf("PDF exceeds the %d MB limit", s.maxBytes>>20), nil)
	}

	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), strings.ReplaceAll(upload.Name, " ", "_"))
	stored, err := s.files.Save(ctx, name, upload.Body)
	if err != nil {
		s.logger.WithError(err).WithField("name", name).Error("Failed to store PDF")
		return nil, upstream("Failed to store PDF", err)
	}
	return stored, nil
}

func (s *CourseService) removeFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.files.Remove(ctx, key); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to remove course PDF")
	}
}

var errCourseNotFound = newError(CodeNotFound, "Course not found", nil)
