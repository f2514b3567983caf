package services

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/google/logger"

	"summitpass/internal/models"
)

// ErrEmptyRoster is returned for an import file with no data rows.
var ErrEmptyRoster = errors.New("roster file is empty")

// Import column headers, matched case-insensitively after trimming.
const (
	colName    = "Nome Completo"
	colEmail   = "Email"
	colCompany = "Empresa"
	colPhone   = "Telefone"
)

var exportHeader = []string{
	"ID", "Nome Completo", "Email", "Empresa", "Telefone",
	"Números", "Estado", "Acreditado", "Stands Visitados", "Data Registo",
}

// ImportRoster registers one user per CSV row that carries both a name and
// an email. Emails already present in the cache are skipped; the existing
// set is snapshotted once at the start of the batch, so two rows sharing a
// new email both insert. Returns the number of users created.
func (s *EventService) ImportRoster(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return 0, ErrEmptyRoster
	}
	if err != nil {
		return 0, err
	}
	cols := columnIndex(header)

	existing := make(map[string]bool)
	for _, u := range s.cache.Users() {
		existing[strings.ToLower(u.Email)] = true
	}

	count := 0
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}
		rows++

		name := field(record, cols, colName)
		email := field(record, cols, colEmail)
		if name == "" || email == "" {
			continue
		}
		if existing[strings.ToLower(email)] {
			continue
		}

		_, err = s.RegisterUser(ctx, name, email,
			field(record, cols, colPhone), field(record, cols, colCompany))
		if err != nil {
			logger.Infof("roster import: skipping %s: %v", email, err)
			continue
		}
		count++
	}
	if rows == 0 {
		return 0, ErrEmptyRoster
	}
	return count, nil
}

// columnIndex maps the known import columns to their positions, matching
// headers case-insensitively.
func columnIndex(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		for _, want := range []string{colName, colEmail, colCompany, colPhone} {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				cols[want] = i
			}
		}
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ExportRoster writes the full user cache as a CSV projection, one row per
// user. A UTF-8 BOM is prepended so spreadsheet tools decode it correctly.
func (s *EventService) ExportRoster(w io.Writer) error {
	if _, err := w.Write([]byte("\xef\xbb\xbf")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, u := range s.cache.Users() {
		if err := cw.Write(exportRow(u)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(u models.User) []string {
	nums := make([]string, len(u.TicketNumbers))
	for i, n := range u.TicketNumbers {
		nums[i] = strconv.Itoa(n)
	}
	estado := "Pendente"
	if u.Status == models.StatusApproved {
		estado = "Aprovado"
	}
	acreditado := "Não"
	if u.CheckedIn {
		acreditado = "Sim"
	}
	return []string{
		u.ID,
		u.Name,
		u.Email,
		u.Company,
		u.Phone,
		strings.Join(nums, ", "),
		estado,
		acreditado,
		strings.Join(u.VisitedStands, ", "),
		u.RegistrationDate.UTC().Format("2006-01-02 15:04:05"),
	}
}
