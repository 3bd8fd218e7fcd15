package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/opendpho/epidash/internal/config"
	facttabledomain "github.com/opendpho/epidash/internal/facttable/domain"
	"github.com/opendpho/epidash/internal/identifier"
	importrundomain "github.com/opendpho/epidash/internal/importrun/domain"
	"github.com/opendpho/epidash/internal/ingest/csvfile"
	"github.com/opendpho/epidash/internal/ingest/dates"
	ingestdomain "github.com/opendpho/epidash/internal/ingest/domain"
	"github.com/opendpho/epidash/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// nullMarkers are cell values that mean "no value" rather than literal text.
var nullMarkers = map[string]struct{}{
	"":     {},
	"-":    {},
	"null": {},
	"n/a":  {},
	"na":   {},
}

// onsetCandidates is the column order the required onset date is resolved
// from: prefer an already-canonical column, then its raw counterpart, then
// the diagnosis and treated pairs as stand-ins.
var onsetCandidates = []string{
	"onset_date_parsed",
	"onset_date",
	"diagnosis_date_parsed",
	"diagnosis_date",
	"treated_date_parsed",
	"treated_date",
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Holder  *config.IngestionConfigHolder
	Tables  facttabledomain.Service
	Runs    importrundomain.Repository
	Node    *snowflake.Node
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	holder  *config.IngestionConfigHolder
	tables  facttabledomain.Service
	runs    importrundomain.Repository
	node    *snowflake.Node
	metrics *metrics.Metrics
}

func New(p Params) ingestdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("ingest.service"),
		holder:  p.Holder,
		tables:  p.Tables,
		runs:    p.Runs,
		node:    p.Node,
		metrics: p.Metrics,
	}
}

func (s *Service) Import(ctx context.Context, req ingestdomain.Request) (*ingestdomain.Result, error) {
	started := time.Now()
	cfg := s.holder.Current()

	if int64(len(req.Data)) > cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes over the %d byte limit",
			ingestdomain.ErrPayloadTooLarge, len(req.Data), cfg.MaxUploadBytes)
	}
	if strings.TrimSpace(req.DiseaseCode) == "" {
		return nil, ingestdomain.ErrMissingDiseaseCode
	}
	if strings.TrimSpace(req.TableName) == "" {
		return nil, ingestdomain.ErrMissingTableName
	}
	tableName, code, err := identifier.TablePair(req.TableName, req.DiseaseCode)
	if err != nil {
		return nil, err
	}

	lines := csvfile.SplitLines(req.Data)
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: need a header line and at least one data line", ingestdomain.ErrEmptyFile)
	}

	delim := csvfile.DetectDelimiter(lines[0])
	columns := map[string]int{}
	for i, name := range csvfile.ParseRecord(lines[0], delim) {
		key := csvfile.NormalizeHeader(name)
		if _, seen := columns[key]; !seen {
			columns[key] = i
		}
	}

	result := &ingestdomain.Result{DiseaseCode: code, TableName: tableName}
	var rows []ingestdomain.RowRecord
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := i + 2
		result.TotalRows++

		fields := csvfile.ParseRecord(line, delim)
		row, rowErr := transformRow(code, columns, fields, lineNo)
		if rowErr != nil {
			result.Skipped++
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		rows = append(rows, *row)
	}
	if len(result.Errors) > cfg.MaxRowErrors {
		result.Errors = result.Errors[:cfg.MaxRowErrors]
	}

	if len(result.Errors) > 0 && !req.SkipBadRows {
		s.record(ctx, result, req.SkipBadRows, importrundomain.StatusRejected, started, "strict validation rejected the file")
		return result, ingestdomain.ErrValidationRejected
	}
	if len(rows) == 0 {
		s.record(ctx, result, req.SkipBadRows, importrundomain.StatusRejected, started, "no row passed validation")
		return result, ingestdomain.ErrNoValidRows
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tables.EnsureDefaultPartition(ctx, tx, tableName); err != nil {
			return err
		}
		for start := 0; start < len(rows); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(rows) {
				end = len(rows)
			}
			inserted, err := insertBatch(tx, tableName, rows[start:end])
			if err != nil {
				return fmt.Errorf("insert into %s: %w", tableName, err)
			}
			result.Inserted += inserted
		}
		return nil
	})
	if err != nil {
		result.Inserted = 0
		s.record(ctx, result, req.SkipBadRows, importrundomain.StatusFailed, started, err.Error())
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordImport(ctx, code, int64(result.Inserted), int64(result.Skipped))
	}
	s.record(ctx, result, req.SkipBadRows, importrundomain.StatusCompleted, started, "")
	s.log.Info("csv import finished",
		zap.String("disease_code", code),
		zap.String("table_name", tableName),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// transformRow turns one parsed CSV record into a RowRecord, or a RowError
// when no onset date can be resolved.
func transformRow(code string, columns map[string]int, fields []string, lineNo int) (*ingestdomain.RowRecord, *ingestdomain.RowError) {
	cell := func(key string) string {
		idx, ok := columns[key]
		if !ok || idx >= len(fields) {
			return ""
		}
		return fields[idx]
	}

	row := &ingestdomain.RowRecord{
		DiseaseCode: code,
		Gender:      nullableString(cell("gender")),
		Nationality: nullableString(cell("nationality")),
		Occupation:  nullableString(cell("occupation")),
		Province:    nullableString(cell("province")),
		District:    nullableString(cell("district")),
		AgeY:        nullableInt(cell("age_y")),
		ID:          nullableID(cell("id")),
	}

	var lastRaw string
	for _, key := range onsetCandidates {
		raw := cell(key)
		if nullableString(raw) == nil {
			continue
		}
		lastRaw = raw
		if canonical, ok := dates.Parse(raw); ok {
			row.OnsetDateParsed = canonical
			break
		}
	}
	if row.OnsetDateParsed == "" {
		msg := "no onset date"
		if lastRaw != "" {
			msg = fmt.Sprintf("unparseable onset date %q", lastRaw)
		}
		return nil, &ingestdomain.RowError{Line: lineNo, Message: msg}
	}

	row.OnsetDate = nullableString(cell("onset_date"))
	row.TreatedDate = nullableString(cell("treated_date"))
	row.DiagnosisDate = nullableString(cell("diagnosis_date"))
	row.DeathDate = nullableString(cell("death_date"))
	row.TreatedDateParsed = optionalDate(cell("treated_date_parsed"), cell("treated_date"))
	row.DiagnosisDateParsed = optionalDate(cell("diagnosis_date_parsed"), cell("diagnosis_date"))
	row.DeathDateParsed = optionalDate(cell("death_date_parsed"), cell("death_date"))
	return row, nil
}

// insertColumns is the fixed column list of every batch statement; id is
// prepended only for rows that carry one.
const insertColumns = "disease_code, gender, age_y, nationality, occupation, province, district, " +
	"onset_date, onset_date_parsed, treated_date, treated_date_parsed, " +
	"diagnosis_date, diagnosis_date_parsed, death_date, death_date_parsed"

// insertBatch writes one batch with a conflict policy that discards rows
// already present by primary key. Rows with and without a pass-through id
// need different column lists, so the batch is split in two statements.
func insertBatch(tx *gorm.DB, tableName string, rows []ingestdomain.RowRecord) (int, error) {
	var withID, withoutID []ingestdomain.RowRecord
	for _, row := range rows {
		if row.ID != nil {
			withID = append(withID, row)
		} else {
			withoutID = append(withoutID, row)
		}
	}

	inserted := 0
	for _, group := range [][]ingestdomain.RowRecord{withoutID, withID} {
		if len(group) == 0 {
			continue
		}
		includeID := group[0].ID != nil

		cols := insertColumns
		if includeID {
			cols = "id, " + cols
		}
		placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", strings.Count(cols, ",")+1), ", ") + ")"

		values := make([]string, 0, len(group))
		var args []interface{}
		for _, row := range group {
			values = append(values, placeholder)
			if includeID {
				args = append(args, *row.ID)
			}
			args = append(args,
				row.DiseaseCode,
				row.Gender,
				row.AgeY,
				row.Nationality,
				row.Occupation,
				row.Province,
				row.District,
				row.OnsetDate,
				row.OnsetDateParsed,
				row.TreatedDate,
				row.TreatedDateParsed,
				row.DiagnosisDate,
				row.DiagnosisDateParsed,
				row.DeathDate,
				row.DeathDateParsed,
			)
		}

		res := tx.Exec(
			"INSERT INTO "+pq.QuoteIdentifier(tableName)+" ("+cols+") VALUES "+
				strings.Join(values, ", ")+" ON CONFLICT DO NOTHING",
			args...,
		)
		if res.Error != nil {
			return 0, res.Error
		}
		inserted += int(res.RowsAffected)
	}
	return inserted, nil
}

// record persists the audit row for a run. Best effort: a failure to audit
// never fails the import itself.
func (s *Service) record(ctx context.Context, res *ingestdomain.Result, skipBadRows bool, status string, started time.Time, detail string) {
	run := &importrundomain.ImportRun{
		ID:          s.node.Generate(),
		DiseaseCode: res.DiseaseCode,
		Table:       res.TableName,
		Status:      status,
		TotalRows:   res.TotalRows,
		Inserted:    res.Inserted,
		Skipped:     res.Skipped,
		SkipBadRows: skipBadRows,
		DurationMS:  time.Since(started).Milliseconds(),
		Detail:      detail,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.runs.Record(ctx, s.db, run); err != nil {
		s.log.Warn("import run not recorded",
			zap.String("disease_code", res.DiseaseCode), zap.Error(err))
	}
}

func nullableString(raw string) *string {
	value := strings.TrimSpace(raw)
	if _, null := nullMarkers[strings.ToLower(value)]; null {
		return nil
	}
	return &value
}

func nullableInt(raw string) *int {
	value := nullableString(raw)
	if value == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func nullableID(raw string) *int64 {
	value := nullableString(raw)
	if value == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		return nil
	}
	id := int64(f)
	return &id
}

func optionalDate(canonicalCell, rawCell string) *string {
	for _, raw := range []string{canonicalCell, rawCell} {
		if nullableString(raw) == nil {
			continue
		}
		if canonical, ok := dates.Parse(raw); ok {
			return &canonical
		}
	}
	return nil
}
