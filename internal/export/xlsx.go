package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

const xlsxSheet = "Responses"

// renderXLSX writes the same tabular schema as the CSV export into a
// spreadsheet. The workbook bytes are returned JSON-encoded (base64) so the
// result travels inside the standard export result envelope.
func (f *Formatter) renderXLSX(survey *models.Survey, responses []*models.Response) (json.RawMessage, error) {
	file := excelize.NewFile()
	defer file.Close()

	index, err := file.NewSheet(xlsxSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	header := []interface{}{"Response ID", "Submitted At"}
	for i := range survey.Questions {
		header = append(header, survey.Questions[i].Title)
	}
	if err := setRow(file, 1, header); err != nil {
		return nil, err
	}

	for rowIdx, response := range responses {
		row := []interface{}{
			strconv.FormatUint(uint64(response.ID), 10),
			submittedAt(response).Format(time.RFC3339),
		}
		for i := range survey.Questions {
			row = append(row, cellValue(&survey.Questions[i], response))
		}
		if err := setRow(file, rowIdx+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	return json.Marshal(buf.Bytes())
}

func setRow(file *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to compute cell name: %w", err)
	}
	if err := file.SetSheetRow(xlsxSheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
