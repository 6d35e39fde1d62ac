package sqlite

import "fmt"

// QueryID names one of the fixed, parameterized statements of a load.
type QueryID int

const (
	QueryLookupAppVersion QueryID = iota
	QueryInsertAppVersion
	QueryLookupUser
	QueryInsertUser
	QueryInsertReview
	QueryReviewExists
	QueryRecordRun
)

// Query is a statement template: pure data, no bound state. Callers supply
// their own arguments through Bind.
type Query struct {
	Name  string
	SQL   string
	Arity int
}

// Bind checks the argument count against the template's arity.
func (q Query) Bind(args ...any) ([]any, error) {
	if len(args) != q.Arity {
		return nil, fmt.Errorf("query %s: expected %d args, got %d", q.Name, q.Arity, len(args))
	}
	return args, nil
}

// Query returns the template for id.
func (id QueryID) Query() Query {
	switch id {
	case QueryLookupAppVersion:
		return Query{Name: "lookup_app_version", Arity: 3, SQL: `
			SELECT version_id
			FROM app_versions
			WHERE version = ? AND build_number = ? AND build_code = ?`}
	case QueryInsertAppVersion:
		return Query{Name: "insert_app_version", Arity: 3, SQL: `
			INSERT INTO app_versions (version, build_number, build_code)
			VALUES (?, ?, ?)`}
	case QueryLookupUser:
		return Query{Name: "lookup_user", Arity: 1, SQL: `
			SELECT user_id
			FROM users
			WHERE user_name = ?`}
	case QueryInsertUser:
		return Query{Name: "insert_user", Arity: 1, SQL: `
			INSERT INTO users (user_name)
			VALUES (?)`}
	case QueryInsertReview:
		return Query{Name: "insert_review", Arity: 7, SQL: `
			INSERT INTO reviews
			(review_id, user_id, content, score, thumbs_up_count, created_at, version_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`}
	case QueryReviewExists:
		return Query{Name: "review_exists", Arity: 1, SQL: `
			SELECT EXISTS (SELECT 1 FROM reviews WHERE review_id = ?)`}
	case QueryRecordRun:
		return Query{Name: "record_run", Arity: 6, SQL: `
			INSERT INTO load_runs
			(run_id, input_path, started_at, succeeded, failed, committed_at)
			VALUES (?, ?, ?, ?, ?, ?)`}
	default:
		panic(fmt.Sprintf("sqlite: unknown query id %d", int(id)))
	}
}

func (id QueryID) String() string { return id.Query().Name }
