// Package export builds staff spreadsheets of appointments.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"medcenter/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	scheduleSheet = "Schedule"
	listSheet     = "Appointments"
)

// ContentType of the produced workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var listHeaders = []string{
	"ID", "Date", "Time", "Doctor", "Service", "Patient", "Email", "Phone", "City", "Reason", "Status", "Created At",
}

// Build returns a workbook with a doctor × day schedule and a flat list of
// every appointment in [start, end].
func Build(start, end time.Time, doctors []models.Doctor, list []*models.Appointment) (*excelize.File, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("invalid date range: %s - %s", start.Format(models.DateLayout), end.Format(models.DateLayout))
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(scheduleSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeSchedule(f, start, end, doctors, list); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeList(f, list); err != nil {
		f.Close()
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// Write streams the workbook for [start, end] to w.
func Write(w io.Writer, start, end time.Time, doctors []models.Doctor, list []*models.Appointment) error {
	f, err := Build(start, end, doctors, list)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveToDir writes the workbook into dir and returns the file path.
func SaveToDir(dir string, start, end time.Time, doctors []models.Doctor, list []*models.Appointment) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := Build(start, end, doctors, list)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, FileName(start, end))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func FileName(start, end time.Time) string {
	return fmt.Sprintf("appointments_%s_to_%s.xlsx", start.Format(models.DateLayout), end.Format(models.DateLayout))
}

func writeSchedule(f *excelize.File, start, end time.Time, doctors []models.Doctor, list []*models.Appointment) error {
	_ = f.SetCellValue(scheduleSheet, "A1", fmt.Sprintf("Period: %s - %s",
		start.Format("02 Jan 2006"), end.Format("02 Jan 2006")))

	dateCols := make(map[string]int)
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	col := 2
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(scheduleSheet, cell, d.Format("Mon 02.01"))
		_ = f.SetCellStyle(scheduleSheet, cell, cell, headerStyle)
		dateCols[d.Format(models.DateLayout)] = col
		col++
	}
	lastCol, _ := excelize.ColumnNumberToName(col - 1)
	_ = f.MergeCell(scheduleSheet, "A1", lastCol+"1")
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(scheduleSheet, "A1", "A1", titleStyle)

	doctorStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}
	rows := make(map[int64]int, len(doctors))
	for i, d := range doctors {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(scheduleSheet, cell, fmt.Sprintf("%s (%s)", d.Name, d.Specialty))
		_ = f.SetCellStyle(scheduleSheet, cell, cell, doctorStyle)
		rows[d.ID] = row
	}

	type key struct {
		doctor int64
		day    string
	}
	cells := make(map[key][]*models.Appointment)
	for _, a := range list {
		k := key{a.DoctorID, a.Date.Format(models.DateLayout)}
		cells[k] = append(cells[k], a)
	}

	for k, items := range cells {
		row, okRow := rows[k.doctor]
		c, okCol := dateCols[k.day]
		if !okRow || !okCol {
			continue
		}
		sort.Slice(items, func(i, j int) bool { return slotMinutes(items[i].TimeSlot) < slotMinutes(items[j].TimeSlot) })

		var sb strings.Builder
		for _, a := range items {
			fmt.Fprintf(&sb, "%s %s %s (%s)\n", statusIcon(a.Status), a.TimeSlot, a.PatientName, a.Phone)
		}
		cell, _ := excelize.CoordinatesToCellName(c, row)
		_ = f.SetCellValue(scheduleSheet, cell, strings.TrimRight(sb.String(), "\n"))
		if style, err := cellStyle(f, items); err == nil {
			_ = f.SetCellStyle(scheduleSheet, cell, cell, style)
		}
	}

	_ = f.SetColWidth(scheduleSheet, "A", "A", 30)
	if col > 2 {
		_ = f.SetColWidth(scheduleSheet, "B", lastCol, 28)
	}
	return nil
}

func writeList(f *excelize.File, list []*models.Appointment) error {
	if _, err := f.NewSheet(listSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	for i, h := range listHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(listSheet, cell, h)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(listSheet, "A1", "L1", bold)

	for i, a := range list {
		row := []interface{}{
			a.ID, a.Date.Format(models.DateLayout), a.TimeSlot, a.DoctorName, a.ServiceType,
			a.PatientName, a.Email, a.Phone, a.City, a.Reason, a.Status, a.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(listSheet, cell, &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(listSheet, "A", "C", 12)
	_ = f.SetColWidth(listSheet, "D", "J", 22)
	return nil
}

// cellStyle: red when all cancelled, yellow when anything is pending,
// green otherwise.
func cellStyle(f *excelize.File, items []*models.Appointment) (int, error) {
	color := "#C6EFCE"
	active := 0
	for _, a := range items {
		if a.Status == models.StatusCancelled {
			continue
		}
		active++
		if a.Status == models.StatusPending {
			color = "#FFEB9C"
		}
	}
	if active == 0 {
		color = "#FFC7CE"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
	})
}

func statusIcon(status string) string {
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		return "✅"
	case models.StatusPending:
		return "⏳"
	case models.StatusCancelled:
		return "❌"
	default:
		return "❓"
	}
}

// slotMinutes orders "09:30 AM" style labels; unparseable labels sort last.
func slotMinutes(slot string) int {
	t, err := time.Parse("03:04 PM", slot)
	if err != nil {
		return 24 * 60
	}
	return t.Hour()*60 + t.Minute()
}
