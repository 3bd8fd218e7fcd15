// Package schema turns a validated fact-table name into the fixed DDL
// skeleton of a partitioned fact relation. Everything in here is pure string
// assembly over identifiers that have already passed the sanitizer; raw
// caller input must never reach this package.
package schema

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/opendpho/epidash/internal/identifier"
)

// Names holds the deterministically derived object names for one fact
// relation. Every name is truncated to the identifier limit; two distinct
// very long table names can therefore derive colliding object names. Known
// limitation, accepted: table names in practice stay far under the limit.
type Names struct {
	Table            string
	Sequence         string
	PrimaryKey       string
	ForeignKey       string
	Index            string
	Quarters         [4]string
	DefaultPartition string
}

// Derive computes the object names for a fact relation.
func Derive(tableName string, baselineYear int) Names {
	n := Names{
		Table:            tableName,
		Sequence:         identifier.Truncate(tableName + "_id_seq"),
		PrimaryKey:       identifier.Truncate(tableName + "_pkey"),
		ForeignKey:       identifier.Truncate(tableName + "_disease_code_fkey"),
		Index:            identifier.Truncate("idx_" + tableName + "_disease_code"),
		DefaultPartition: identifier.Truncate(tableName + "_default"),
	}
	for q := 0; q < 4; q++ {
		n.Quarters[q] = identifier.Truncate(fmt.Sprintf("%s_y%dq%d", tableName, baselineYear, q+1))
	}
	return n
}

// quarterBounds returns the half-open [from, to) bounds of the four quarters
// of the baseline year; Q4 spans into January of the next year.
func quarterBounds(year, quarter int) (string, string) {
	starts := [5]string{
		fmt.Sprintf("%04d-01-01", year),
		fmt.Sprintf("%04d-04-01", year),
		fmt.Sprintf("%04d-07-01", year),
		fmt.Sprintf("%04d-10-01", year),
		fmt.Sprintf("%04d-01-01", year+1),
	}
	return starts[quarter], starts[quarter+1]
}

// CreateSequence returns the surrogate-key sequence DDL.
func CreateSequence(n Names) string {
	return "CREATE SEQUENCE IF NOT EXISTS " + pq.QuoteIdentifier(n.Sequence)
}

// CreateTable returns the partitioned parent DDL: the fixed surveillance
// column set, composite primary key on (onset_date_parsed, id), a named
// foreign key into the disease registry, range-partitioned by the parsed
// onset date.
func CreateTable(n Names) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id bigint NOT NULL DEFAULT nextval('%s'),
	disease_code varchar(8) NOT NULL,
	gender text,
	age_y integer,
	nationality text,
	occupation text,
	province text,
	district text,
	onset_date text,
	onset_date_parsed date NOT NULL,
	treated_date text,
	treated_date_parsed date,
	diagnosis_date text,
	diagnosis_date_parsed date,
	death_date text,
	death_date_parsed date,
	created_at timestamptz NOT NULL DEFAULT now(),
	CONSTRAINT %s PRIMARY KEY (onset_date_parsed, id),
	CONSTRAINT %s FOREIGN KEY (disease_code) REFERENCES diseases (disease_code)
) PARTITION BY RANGE (onset_date_parsed)`,
		pq.QuoteIdentifier(n.Table),
		n.Sequence,
		pq.QuoteIdentifier(n.PrimaryKey),
		pq.QuoteIdentifier(n.ForeignKey),
	)
}

// BindSequence couples the sequence's lifecycle to the relation's id column.
func BindSequence(n Names) string {
	return fmt.Sprintf("ALTER SEQUENCE %s OWNED BY %s.id",
		pq.QuoteIdentifier(n.Sequence),
		pq.QuoteIdentifier(n.Table),
	)
}

// CreateIndex returns the disease_code index DDL, declared only on the parent
// so provisioning stays cheap regardless of partition count.
func CreateIndex(n Names) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON ONLY %s (disease_code)",
		pq.QuoteIdentifier(n.Index),
		pq.QuoteIdentifier(n.Table),
	)
}

// CreateQuarter returns the DDL for one of the four baseline-year quarterly
// partitions (0-based quarter).
func CreateQuarter(n Names, baselineYear, quarter int) string {
	from, to := quarterBounds(baselineYear, quarter)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s PARTITION OF %s FOR VALUES FROM ('%s') TO ('%s')",
		pq.QuoteIdentifier(n.Quarters[quarter]),
		pq.QuoteIdentifier(n.Table),
		from,
		to,
	)
}

// CreateDefaultPartition returns the catch-all partition DDL.
func CreateDefaultPartition(n Names) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s PARTITION OF %s DEFAULT",
		pq.QuoteIdentifier(n.DefaultPartition),
		pq.QuoteIdentifier(n.Table),
	)
}

// DefaultPartitionFor returns the catch-all partition DDL for an arbitrary
// relation; the safety net uses it for relations it did not provision.
func DefaultPartitionFor(tableName string) (name string, ddl string) {
	name = identifier.Truncate(tableName + "_default")
	ddl = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s PARTITION OF %s DEFAULT",
		pq.QuoteIdentifier(name),
		pq.QuoteIdentifier(tableName),
	)
	return name, ddl
}
