// Package importer seeds substations and their readings from a YAML document.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gardu-monitor-backend/internal/calc"
	"gardu-monitor-backend/internal/model"
	"gardu-monitor-backend/internal/parse"
	"gardu-monitor-backend/internal/store"
)

// Document is the top-level seed file layout.
type Document struct {
	Substations []SubstationEntry `yaml:"substations"`
}

// SubstationEntry describes one gardu and its readings.
type SubstationEntry struct {
	Code        string         `yaml:"code"`
	Name        string         `yaml:"name"`
	Address     string         `yaml:"address"`
	Feeder      string         `yaml:"feeder"`
	CapacityKVA any            `yaml:"capacity_kva"`
	Latitude    any            `yaml:"latitude"`
	Longitude   any            `yaml:"longitude"`
	Readings    []ReadingEntry `yaml:"readings"`
}

// ReadingEntry is one row of a field sheet. Numeric fields accept numbers or
// strings with a decimal comma.
type ReadingEntry struct {
	Period     string `yaml:"period"`
	Row        string `yaml:"row"`
	Month      string `yaml:"month"`
	MeasuredAt string `yaml:"measured_at"`
	R          any    `yaml:"r"`
	S          any    `yaml:"s"`
	T          any    `yaml:"t"`
	N          any    `yaml:"n"`
	RN         any    `yaml:"rn"`
	SN         any    `yaml:"sn"`
	TN         any    `yaml:"tn"`
	PP         any    `yaml:"pp"`
	PN         any    `yaml:"pn"`
}

// Decode reads a seed document and converts it into import items with
// derived values computed. All problems are reported together.
func Decode(r io.Reader) ([]store.ImportItem, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode seed document: %w", err)
	}

	var errs []error
	items := make([]store.ImportItem, 0, len(doc.Substations))
	seen := make(map[string]bool)
	for i, entry := range doc.Substations {
		item, err := entry.toItem()
		if err != nil {
			errs = append(errs, fmt.Errorf("substations[%d]: %w", i, err))
			continue
		}
		if seen[item.Substation.Code] {
			errs = append(errs, fmt.Errorf("substations[%d]: duplicate code %q", i, item.Substation.Code))
			continue
		}
		seen[item.Substation.Code] = true
		items = append(items, item)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return items, nil
}

func (e SubstationEntry) toItem() (store.ImportItem, error) {
	code := strings.TrimSpace(e.Code)
	if code == "" {
		return store.ImportItem{}, errors.New("code is required")
	}
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = code
	}

	capacity, err := optionalNumber(e.CapacityKVA)
	if err != nil {
		return store.ImportItem{}, fmt.Errorf("capacity_kva: %w", err)
	}
	sub := model.Substation{
		Code:    code,
		Name:    name,
		Address: strings.TrimSpace(e.Address),
		Feeder:  strings.TrimSpace(e.Feeder),
	}
	if capacity != nil {
		sub.CapacityKVA = *capacity
	}
	if sub.Latitude, err = optionalNumber(e.Latitude); err != nil {
		return store.ImportItem{}, fmt.Errorf("latitude: %w", err)
	}
	if sub.Longitude, err = optionalNumber(e.Longitude); err != nil {
		return store.ImportItem{}, fmt.Errorf("longitude: %w", err)
	}

	keys := make(map[string]bool)
	measurements := make([]model.Measurement, 0, len(e.Readings))
	for j, rd := range e.Readings {
		m, err := rd.toMeasurement(sub.CapacityKVA)
		if err != nil {
			return store.ImportItem{}, fmt.Errorf("readings[%d]: %w", j, err)
		}
		key := fmt.Sprintf("%s|%s|%s", m.Period, m.RowCode, m.Month)
		if keys[key] {
			return store.ImportItem{}, fmt.Errorf("readings[%d]: duplicate %s reading for row %q in %s", j, m.Period, m.RowCode, m.Month)
		}
		keys[key] = true
		measurements = append(measurements, m)
	}

	return store.ImportItem{Substation: sub, Measurements: measurements}, nil
}

func (rd ReadingEntry) toMeasurement(capacity float64) (model.Measurement, error) {
	period, err := parse.Period(rd.Period)
	if err != nil {
		return model.Measurement{}, err
	}
	month, err := parse.Month(rd.Month)
	if err != nil {
		return model.Measurement{}, err
	}
	row := strings.ToUpper(strings.TrimSpace(rd.Row))
	if row == "" {
		return model.Measurement{}, errors.New("row is required")
	}

	var readings model.Readings
	fields := []struct {
		name string
		raw  any
		dst  *float64
	}{
		{"r", rd.R, &readings.R}, {"s", rd.S, &readings.S}, {"t", rd.T, &readings.T},
		{"n", rd.N, &readings.N}, {"rn", rd.RN, &readings.RN}, {"sn", rd.SN, &readings.SN},
		{"tn", rd.TN, &readings.TN}, {"pp", rd.PP, &readings.PP}, {"pn", rd.PN, &readings.PN},
	}
	for _, f := range fields {
		v, err := optionalNumber(f.raw)
		if err != nil {
			return model.Measurement{}, fmt.Errorf("%s: %w", f.name, err)
		}
		if v != nil {
			*f.dst = *v
		}
	}

	m := model.Measurement{
		Period:   period,
		RowCode:  row,
		Month:    month,
		Readings: readings,
		Derived:  calc.Derive(readings, capacity),
	}
	if rd.MeasuredAt != "" {
		at, err := time.Parse(time.RFC3339, rd.MeasuredAt)
		if err != nil {
			return model.Measurement{}, fmt.Errorf("measured_at: %w", err)
		}
		at = at.UTC()
		m.MeasuredAt = &at
	}
	return m, nil
}

func optionalNumber(raw any) (*float64, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := parse.Number(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Run decodes the document and persists it in one batch.
func Run(ctx context.Context, s store.Store, r io.Reader) (store.ImportStats, error) {
	items, err := Decode(r)
	if err != nil {
		return store.ImportStats{}, err
	}
	stats, err := s.ImportBatch(ctx, items)
	if err != nil {
		return store.ImportStats{}, err
	}
	log.Printf("Import finished: %d substations, %d readings inserted, %d skipped", stats.Substations, stats.Inserted, stats.Skipped)
	return stats, nil
}
