package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core/course"
)

var createFileFunc = func(path string) (io.WriteCloser, error) { return os.Create(path) } // mockable

// courseRecord is a course as a CSV row. Categories and tags are comma separated.
type courseRecord struct {
	ID             string  `csv:"id"`
	Name           string  `csv:"name"`
	Description    string  `csv:"description"`
	Categories     string  `csv:"categories"`
	Tags           string  `csv:"tags"`
	Level          string  `csv:"level"`
	Price          float64 `csv:"price"`
	EstimatedPrice string  `csv:"estimated_price"`
	Thumbnail      string  `csv:"thumbnail"`
	DemoURL        string  `csv:"demo_url"`
	Rating         float64 `csv:"rating"`
	Purchased      int     `csv:"purchased"`
}

func newCourseRecord(c course.Course) *courseRecord {
	rec := &courseRecord{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description.String,
		Categories:  c.Categories.String(),
		Tags:        c.Tags.String(),
		Level:       c.Level,
		Price:       c.Price,
		Thumbnail:   c.Thumbnail.String,
		DemoURL:     c.DemoURL.String,
		Rating:      c.Rating,
		Purchased:   c.Purchased,
	}
	if c.EstimatedPrice.Valid {
		rec.EstimatedPrice = strconv.FormatFloat(c.EstimatedPrice.Float64, 'f', -1, 64)
	}
	return rec
}

// newCourse maps the editable columns of the record. ID, rating and purchases are left out.
func (rec courseRecord) newCourse() (course.NewCourse, error) {
	nc := course.NewCourse{
		Name:        rec.Name,
		Description: null.NewString(rec.Description, rec.Description != ""),
		Categories:  course.ParseLabels(rec.Categories),
		Tags:        course.ParseLabels(rec.Tags),
		Level:       rec.Level,
		Price:       rec.Price,
		Thumbnail:   null.NewString(rec.Thumbnail, rec.Thumbnail != ""),
		DemoURL:     null.NewString(rec.DemoURL, rec.DemoURL != ""),
	}
	if rec.EstimatedPrice != "" {
		price, err := strconv.ParseFloat(rec.EstimatedPrice, 64)
		if err != nil {
			return nc, errors.Wrapf(err, "parsing estimated_price %q", rec.EstimatedPrice)
		}
		nc.EstimatedPrice = null.Float64From(price)
	}
	return nc, nil
}

// importCourses creates every course of the CSV file. Rows are all validated before anything is stored.
func (cli *commandLine) importCourses(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	var records []*courseRecord
	if err = gocsv.UnmarshalFile(file, &records); err != nil {
		return errors.Wrap(err, "reading courses")
	}

	courses := make([]course.NewCourse, 0, len(records))
	for i, rec := range records {
		nc, err := rec.newCourse()
		if err == nil {
			err = cli.validationError(nc.Validate(cli.validate))
		}
		if err != nil {
			return errors.Wrapf(err, "row %d", i+2) // 1-based, after the header
		}
		courses = append(courses, nc)
	}

	ctx := context.Background()
	for _, nc := range courses {
		if _, err = cli.courseSvc.Create(ctx, nc); err != nil {
			return err
		}
	}
	fmt.Fprintf(cli.out, "%d courses imported\n", len(courses))
	return nil
}

func (cli *commandLine) exportCourses(path string) error {
	courses, err := cli.courseSvc.QueryAll(context.Background())
	if err != nil {
		return err
	}
	records := make([]*courseRecord, 0, len(courses))
	for _, c := range courses {
		records = append(records, newCourseRecord(c))
	}

	file, err := createFileFunc(path)
	if err != nil {
		return err
	}
	if err = gocsv.Marshal(&records, file); err != nil {
		_ = file.Close()
		return errors.Wrap(err, "writing courses")
	}
	// the file is only complete once closed
	if err = file.Close(); err != nil {
		return errors.Wrap(err, "closing courses file")
	}
	fmt.Fprintf(cli.out, "%d courses exported\n", len(records))
	return nil
}
