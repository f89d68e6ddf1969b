package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"attendtrack/internal/attendance"
)

const (
	sheetName  = "Attendance"
	timeLayout = "2006-01-02 15:04:05"
	notAvail   = "N/A"
)

var header = []string{
	"User", "Check In", "Check Out", "Duration (hrs)",
	"Check-in Location", "Check-out Location", "Status",
}

// Export renders sessions into an xlsx workbook, one row per session plus a
// header row. Callers pass sessions already ordered check-in descending.
func Export(sessions []attendance.Session) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	if err := writeRow(f, 1, header); err != nil {
		return nil, err
	}
	for i, s := range sessions {
		row := []string{
			s.Username,
			s.CheckInTime.UTC().Format(timeLayout),
			formatCheckOut(s.CheckOutTime),
			FormatDuration(s.CheckInTime, s.CheckOutTime),
			FormatLocation(s.CheckInLocation),
			FormatLocation(s.CheckOutLocation),
			s.Status,
		}
		if err := writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeRow(f *excelize.File, row int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func formatCheckOut(t *time.Time) string {
	if t == nil {
		return notAvail
	}
	return t.UTC().Format(timeLayout)
}

// FormatDuration renders elapsed hours to two decimals, degrading to N/A
// for sessions that never closed or carry unusable timestamps.
func FormatDuration(checkIn time.Time, checkOut *time.Time) string {
	if checkOut == nil || checkIn.IsZero() || checkOut.IsZero() {
		return notAvail
	}
	hours := checkOut.Sub(checkIn).Seconds() / 3600
	return fmt.Sprintf("%.2f", hours)
}

// FormatLocation renders "<city> (<lat>, <lon>)" with 4 decimal places when
// coordinates exist, the bare city otherwise, and N/A when nothing is known.
func FormatLocation(loc attendance.Location) string {
	city := ""
	if loc.City != nil {
		city = *loc.City
	}
	if loc.Latitude != nil && loc.Longitude != nil {
		if city == "" {
			city = "Unknown"
		}
		return fmt.Sprintf("%s (%.4f, %.4f)", city, *loc.Latitude, *loc.Longitude)
	}
	if city != "" {
		return city
	}
	return notAvail
}
