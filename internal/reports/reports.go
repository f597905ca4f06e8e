// Package reports holds the fixed battery of analytical queries run against
// the disease schema. Most are reads; two rewrite data in bulk and one
// creates an index. The SQL is written for PostgreSQL.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"dbadmin/internal/gateway"
	"dbadmin/internal/metrics"
	"dbadmin/internal/statement"
)

// ErrUnknownReport is returned for an id outside the catalog.
var ErrUnknownReport = errors.New("unknown report")

// Kind tells how a report is run and what it returns.
type Kind int

const (
	// Read returns a result table.
	Read Kind = iota
	// Mutation changes rows and returns an affected-row count.
	Mutation
	// Schema changes the schema and returns nothing.
	Schema
)

func (k Kind) String() string {
	switch k {
	case Mutation:
		return "mutation"
	case Schema:
		return "schema"
	default:
		return "read"
	}
}

// Report is one catalog entry.
type Report struct {
	ID    int
	Title string
	Kind  Kind
	SQL   string
}

// Outcome is the result of running a report. Table is set for reads,
// Affected for mutations.
type Outcome struct {
	Report   Report
	Table    *gateway.Table
	Affected int64
	Took     time.Duration
}

var catalog = []Report{
	{
		ID:    1,
		Title: "Bacterial diseases discovered before 1990",
		SQL: `SELECT D.disease_code, D.description
FROM "Disease" D JOIN "Discover" E ON D.disease_code = E.disease_code
WHERE D.pathogen = 'bacteria' AND E.first_enc_date < '1990-01-01'`,
	},
	{
		ID:    2,
		Title: "Doctors not specialized in infectious diseases",
		SQL: `SELECT U.name, U.surname, D.degree
FROM "Users" U INNER JOIN "Doctor" D ON U.email = D.email
               INNER JOIN "Specialize" S ON U.email = S.email
               INNER JOIN "DiseaseType" DT ON S.id = DT.id
GROUP BY (U.name, U.surname, D.degree)
EXCEPT
SELECT U.name, U.surname, D.degree
FROM "Users" U INNER JOIN "Doctor" D ON U.email = D.email
               INNER JOIN "Specialize" S ON U.email = S.email
               INNER JOIN "DiseaseType" DT ON S.id = DT.id
WHERE DT.description = 'infectious disease'`,
	},
	{
		ID:    3,
		Title: "Doctors specialized in more than two disease types",
		SQL: `SELECT name, surname, degree
FROM (
    SELECT U.email, U.name, U.surname, D.degree, S.id
    FROM "Users" U INNER JOIN "Doctor" D ON U.email = D.email
                   INNER JOIN "Specialize" S ON U.email = S.email
) AS DS
GROUP BY (name, surname, degree)
HAVING COUNT(*) > 2`,
	},
	{
		ID:    4,
		Title: "Average salary of virology doctors per country",
		SQL: `SELECT U.cname, AVG(U.salary)
FROM "Doctor" D JOIN "Users" U ON D.email = U.email
WHERE D.degree = 'virology'
GROUP BY U.cname`,
	},
	{
		ID:    5,
		Title: "Departments reporting covid-19 in more than one country",
		SQL: `SELECT PS.department, AVG(PSC.num_workers)
FROM (
    SELECT R.email
    FROM "Record" R
    WHERE R.disease_code = 'covid-19'
    GROUP BY (R.email, R.disease_code)
    HAVING COUNT(*) > 1
) AS RC
INNER JOIN "PublicServant" PS ON RC.email = PS.email
INNER JOIN (
    SELECT PS.department, COUNT(*) AS num_workers
    FROM "PublicServant" PS
    GROUP BY PS.department
) AS PSC
ON PS.department = PSC.department
GROUP BY PS.department`,
	},
	{
		ID:    6,
		Title: "Double the salary of servants with more than three covid-19 records",
		Kind:  Mutation,
		SQL: `UPDATE "Users" U
SET salary = salary * 2
FROM (
    SELECT R.email
    FROM "Record" R
    WHERE R.disease_code = 'covid-19'
    GROUP BY (R.email, R.disease_code)
    HAVING COUNT(*) > 3
) AS RC
WHERE U.email = RC.email`,
	},
	{
		ID:    7,
		Title: `Delete users whose name contains "bek" or "gul"`,
		Kind:  Mutation,
		SQL: `DELETE FROM "Users"
WHERE name LIKE '%bek%' OR name LIKE '%gul%'`,
	},
	{
		ID:    8,
		Title: "Create index idx_pathogen on Disease.pathogen",
		Kind:  Schema,
		SQL:   `CREATE INDEX idx_pathogen ON "Disease" (pathogen)`,
	},
	{
		ID:    9,
		Title: "Public servants with records of 100000 to 999999 patients",
		SQL: `SELECT U.email, U.name, U.surname, PS.department
FROM "PublicServant" PS INNER JOIN "Record" R ON PS.email = R.email
                        INNER JOIN "Users" U ON PS.email = U.email
WHERE R.total_patients >= 100000 AND R.total_patients <= 999999`,
	},
	{
		ID:    10,
		Title: "Top 5 countries by total patients recorded",
		SQL: `SELECT cname, MAX(total_patients)
FROM "Record"
GROUP BY cname
ORDER BY MAX(total_patients) DESC
LIMIT 5`,
	},
	{
		ID:    11,
		Title: "Total patients per disease type",
		SQL: `SELECT DT.description, SUM(R.total_patients)
FROM "DiseaseType" DT JOIN "Disease" D ON DT.id = D.id
                      JOIN "Record" R ON R.disease_code = D.disease_code
GROUP BY DT.description`,
	},
}

// All returns the catalog in id order.
func All() []Report {
	return append([]Report(nil), catalog...)
}

// ByID looks up a report.
func ByID(id int) (Report, error) {
	for _, r := range catalog {
		if r.ID == id {
			return r, nil
		}
	}
	return Report{}, fmt.Errorf("%w: %d", ErrUnknownReport, id)
}

// Parse looks up a report by its decimal id, as found in URLs and flags.
func Parse(s string) (Report, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownReport, s)
	}
	return ByID(id)
}

// Runner is the part of gateway.Gateway reports need.
type Runner interface {
	Dialect() statement.Dialect
	Query(ctx context.Context, sql string, args ...any) (*gateway.Table, error)
	Execute(ctx context.Context, st statement.Statement) (int64, error)
}

// Run executes r once.
func Run(ctx context.Context, db Runner, r Report) (Outcome, error) {
	out := Outcome{Report: r}
	start := time.Now()
	var err error
	switch r.Kind {
	case Read:
		out.Table, err = db.Query(ctx, r.SQL)
		if out.Table != nil {
			out.Table.Name = r.Title
		}
	case Mutation, Schema:
		out.Affected, err = db.Execute(ctx, statement.Statement{Dialect: db.Dialect(), SQL: r.SQL})
	}
	out.Took = time.Since(start)
	metrics.RecordReport(strconv.Itoa(r.ID), err)
	if err != nil {
		return out, fmt.Errorf("report %d: %w", r.ID, err)
	}
	return out, nil
}
