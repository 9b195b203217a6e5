package models

import "time"

// Module is one curriculum entry embedded in a course.
type Module struct {
	Title     string   `json:"title" bson:"title"`
	Objective string   `json:"objective,omitempty" bson:"objective,omitempty"`
	Topics    []string `json:"topics" bson:"topics"`
	Labs      []string `json:"labs" bson:"labs"`
}

type WhyChoose struct {
	Title   string `json:"title" bson:"title"`
	Content string `json:"content" bson:"content"`
}

type Course struct {
	ID          string      `json:"id" bson:"_id"`
	Title       string      `json:"title" bson:"title"`
	Description string      `json:"description" bson:"description"`
	PDFURL      string      `json:"pdfUrl,omitempty" bson:"pdf_url,omitempty"`
	PDFKey      string      `json:"-" bson:"pdf_key,omitempty"`
	WhyChoose   []WhyChoose `json:"whyChoose" bson:"why_choose"`
	AboutCourse string      `json:"aboutCourse,omitempty" bson:"about_course,omitempty"`
	Curriculum  []Module    `json:"curriculum" bson:"curriculum"`
	CreatedAt   time.Time   `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updated_at"`
}
