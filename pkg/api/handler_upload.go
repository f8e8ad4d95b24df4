package api

import (
	"encoding/csv"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"
	"github.com/xuri/excelize/v2"

	"github.com/ruchirkulkarni22/LensOra/pkg/models"
	"github.com/ruchirkulkarni22/LensOra/pkg/store"
)

// uploadKnowledgeHandler handles POST /api/upload-knowledge: a CSV/XLSX file
// with module_name,field_name columns upserted into the taxonomy.
func (s *Server) uploadKnowledgeHandler(c *echo.Context) error {
	sheet, filename, err := s.readUpload(c)
	if err != nil {
		return err
	}

	rows, err := sheet.project("module_name", "field_name")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	knowledgeRows := make([]store.KnowledgeRow, len(rows))
	for i, r := range rows {
		knowledgeRows[i] = store.KnowledgeRow{ModuleName: r[0], FieldName: r[1]}
	}

	result, err := s.store.UpsertModuleKnowledge(c.Request().Context(), knowledgeRows)
	if err != nil {
		return mapServiceError(err)
	}
	if len(result.Errors) > 0 && result.RowsProcessed == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, strings.Join(result.Errors, "; "))
	}

	return c.JSON(http.StatusCreated, uploadResponse{
		Filename:      filename,
		Status:        "success",
		Message:       "Knowledge base updated successfully.",
		RowsProcessed: result.RowsProcessed,
		RowsUpserted:  result.RowsUpserted,
		Errors:        result.Errors,
	})
}

// uploadSolvedTicketsHandler handles POST /api/upload-solved-tickets: the
// retrieval corpus upload. Embeddings are computed before upsert.
func (s *Server) uploadSolvedTicketsHandler(c *echo.Context) error {
	sheet, filename, err := s.readUpload(c)
	if err != nil {
		return err
	}

	rows, err := sheet.project("ticket_key", "summary", "resolution")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	descriptions := sheet.column("description")
	tickets := make([]models.SolvedTicket, 0, len(rows))
	for i, r := range rows {
		if r[0] == "" {
			continue
		}
		tickets = append(tickets, models.SolvedTicket{
			TicketKey:   r[0],
			Summary:     r[1],
			Resolution:  r[2],
			Description: descriptions[i],
		})
	}

	upserted, err := s.ragService.UpsertSolvedTickets(c.Request().Context(), tickets)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, uploadResponse{
		Filename:      filename,
		Status:        "success",
		Message:       "Solved tickets knowledge base updated successfully.",
		RowsProcessed: len(rows),
		RowsUpserted:  upserted,
	})
}

// table is a parsed tabular upload with normalized headers.
type table struct {
	headers map[string]int
	rows    [][]string
}

// readUpload extracts and parses the multipart "file" field, rejecting
// unsupported extensions with 400.
func (s *Server) readUpload(c *echo.Context) (*table, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "multipart 'file' field is required")
	}

	name := fileHeader.Filename
	switch {
	case strings.HasSuffix(name, ".csv"):
		t, err := parseCSV(fileHeader)
		return t, name, err
	case strings.HasSuffix(name, ".xlsx"):
		t, err := parseXLSX(fileHeader)
		return t, name, err
	default:
		return nil, "", echo.NewHTTPError(http.StatusBadRequest,
			"Invalid file format. Please upload a CSV or XLSX file.")
	}
}

func parseCSV(fileHeader *multipart.FileHeader) (*table, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "could not open upload")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed CSV: "+err.Error())
	}
	return tableFromRecords(records)
}

func parseXLSX(fileHeader *multipart.FileHeader) (*table, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "could not open upload")
	}
	defer f.Close()

	book, err := excelize.OpenReader(f)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed XLSX: "+err.Error())
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "XLSX file contains no sheets")
	}
	records, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "could not read XLSX rows: "+err.Error())
	}
	return tableFromRecords(records)
}

func tableFromRecords(records [][]string) (*table, error) {
	if len(records) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "file is empty")
	}

	headers := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		headers[normalizeHeader(h)] = i
	}
	return &table{headers: headers, rows: records[1:]}, nil
}

func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// project validates the required columns exist and returns their values per
// row, in the requested order.
func (t *table) project(columns ...string) ([][]string, error) {
	indices := make([]int, len(columns))
	var missing []string
	for i, col := range columns {
		idx, ok := t.headers[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		indices[i] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("file is missing required column(s): %s", strings.Join(missing, ", "))
	}

	out := make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		projected := make([]string, len(columns))
		for i, idx := range indices {
			if idx < len(row) {
				projected[i] = strings.TrimSpace(row[idx])
			}
		}
		out = append(out, projected)
	}
	return out, nil
}

// column returns the values of a named column aligned with the data rows,
// or empty strings when the column is absent.
func (t *table) column(name string) []string {
	out := make([]string, len(t.rows))
	idx, ok := t.headers[name]
	if !ok {
		return out
	}
	for i, row := range t.rows {
		if idx < len(row) {
			out[i] = strings.TrimSpace(row[idx])
		}
	}
	return out
}
