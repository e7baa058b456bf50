// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package board

import (
	"slices"

	"postdeck/internal/apperr"
	"postdeck/internal/models"
)

// Column is a board table column that a fill drag can copy down.
type Column string

const (
	ColumnMonth     Column = "month"
	ColumnCaption   Column = "caption"
	ColumnPlatforms Column = "platforms"
	ColumnFormat    Column = "format"
)

// Fill is the value copied by a fill drag. Only the field matching Column
// is read.
type Fill struct {
	Column    Column            `json:"column"`
	Month     int               `json:"month,omitempty"`
	Caption   *models.Caption   `json:"caption,omitempty"`
	Platforms []models.Platform `json:"platforms,omitempty"`
	Pages     []string          `json:"pages,omitempty"`
	Format    string            `json:"format,omitempty"`
}

// FillFrom returns the Fill that copies column from p.
func FillFrom(p *models.Post, column Column) (Fill, error) {
	f := Fill{Column: column}
	switch column {
	case ColumnMonth:
		f.Month = p.Month
	case ColumnCaption:
		c := cloneCaption(p.Caption)
		f.Caption = &c
	case ColumnPlatforms:
		f.Platforms = slices.Clone(p.Platforms)
		f.Pages = slices.Clone(p.Pages)
	case ColumnFormat:
		f.Format = p.Format
	default:
		return Fill{}, apperr.Invalid("column", "cannot fill column %q", column)
	}
	return f, nil
}

// Setter validates f and returns the function that applies it to a row.
// Setting platforms also sets the pages published to.
func (f Fill) Setter() (func(*models.Post), error) {
	switch f.Column {
	case ColumnMonth:
		if f.Month < 0 || f.Month > 12 {
			return nil, apperr.Invalid("month", "must be between 0 and 12, got %d", f.Month)
		}
		return func(p *models.Post) { p.Month = f.Month }, nil
	case ColumnCaption:
		if f.Caption == nil {
			return nil, apperr.Invalid("caption", "is required")
		}
		c := *f.Caption
		return func(p *models.Post) { p.Caption = cloneCaption(c) }, nil
	case ColumnPlatforms:
		platforms, pages := slices.Clone(f.Platforms), slices.Clone(f.Pages)
		return func(p *models.Post) {
			p.Platforms = slices.Clone(platforms)
			p.Pages = slices.Clone(pages)
		}, nil
	case ColumnFormat:
		return func(p *models.Post) { p.Format = f.Format }, nil
	}
	return nil, apperr.Invalid("column", "cannot fill column %q", f.Column)
}

func cloneCaption(c models.Caption) models.Caption {
	out := c
	if c.PerPlatform != nil {
		out.PerPlatform = make(map[models.Platform]string, len(c.PerPlatform))
		for k, v := range c.PerPlatform {
			out.PerPlatform[k] = v
		}
	}
	return out
}
