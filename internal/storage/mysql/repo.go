package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func valTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func valCategory(p *domain.Category) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

func isDuplicateKey(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- reviews ----

func (r *Repo) CreateReview(ctx context.Context, rv domain.Review) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.BusinessID,
		valStr(rv.UserID),
		valStr(rv.AuthorName),
		rv.Text,
		valCategory(rv.Category),
		string(rv.Source),
		valStr(rv.ExternalID),
		valF64(rv.Rating),
		valStr(rv.Lang),
		valTime(rv.CreatedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, domain.ErrDuplicate
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) InsertReviewIfAbsent(ctx context.Context, rv domain.Review) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertReviewIgnoreSQL,
		rv.BusinessID,
		valStr(rv.UserID),
		valStr(rv.AuthorName),
		rv.Text,
		valCategory(rv.Category),
		string(rv.Source),
		valStr(rv.ExternalID),
		valF64(rv.Rating),
		valStr(rv.Lang),
		valTime(rv.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Repo) MarkAnalyzed(ctx context.Context, reviewID int64) error {
	_, err := r.db.ExecContext(ctx, markAnalyzedSQL, reviewID)
	return err
}

func (r *Repo) ListReviews(ctx context.Context, businessID string, pg domain.PageQuery) ([]domain.Review, error) {
	limit := pg.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviews(rows)
}

func (r *Repo) FindUnanalyzed(ctx context.Context, businessID string, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, findUnanalyzedSQL, businessID, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReviews(rows)
}

func (r *Repo) LatestExternalReviewTime(ctx context.Context, businessID string) (*time.Time, error) {
	var t sql.NullTime
	if err := r.db.QueryRowContext(ctx, latestExternalReviewTimeSQL, businessID).Scan(&t); err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, nil
	}
	ts := t.Time
	return &ts, nil
}

func scanReviews(rows *sql.Rows) ([]domain.Review, error) {
	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		var (
			userID, authorName, externalID, lang sql.NullString
			category                             sql.NullString
			source                               string
			rating                               sql.NullFloat64
			createdAt                            sql.NullTime
		)
		if err := rows.Scan(
			&rv.ID,
			&rv.BusinessID,
			&userID,
			&authorName,
			&rv.Text,
			&category,
			&rv.IsAnalyzed,
			&source,
			&externalID,
			&rating,
			&lang,
			&createdAt,
		); err != nil {
			return nil, err
		}
		rv.Source = domain.ReviewSource(source)
		if userID.Valid {
			s := userID.String
			rv.UserID = &s
		}
		if authorName.Valid {
			s := authorName.String
			rv.AuthorName = &s
		}
		if category.Valid {
			c := domain.Category(category.String)
			rv.Category = &c
		}
		if externalID.Valid {
			s := externalID.String
			rv.ExternalID = &s
		}
		if rating.Valid {
			f := rating.Float64
			rv.Rating = &f
		}
		if lang.Valid {
			s := lang.String
			rv.Lang = &s
		}
		if createdAt.Valid {
			rv.CreatedAt = createdAt.Time
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// ---- analyses ----

func (r *Repo) CreateAnalysis(ctx context.Context, a domain.Analysis) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertAnalysisSQL,
		a.ReviewID,
		a.BusinessID,
		valStr(a.UserID),
		a.Text,
		string(a.Category),
		string(a.Sentiment),
		a.Summary,
		valStr(a.Suggestions),
		valStr(a.GeneratedResponse),
	)
	if err != nil {
		// UNIQUE(review_id): at most one analysis per review, ever
		if isDuplicateKey(err) {
			return 0, domain.ErrDuplicate
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) GetAnalysis(ctx context.Context, id int64) (domain.Analysis, error) {
	return r.oneAnalysis(ctx, getAnalysisSQL, id)
}

func (r *Repo) GetAnalysisByReview(ctx context.Context, reviewID int64) (domain.Analysis, error) {
	return r.oneAnalysis(ctx, getAnalysisByReviewSQL, reviewID)
}

func (r *Repo) oneAnalysis(ctx context.Context, query string, arg any) (domain.Analysis, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return domain.Analysis{}, err
	}
	defer rows.Close()
	as, err := scanAnalyses(rows)
	if err != nil {
		return domain.Analysis{}, err
	}
	if len(as) == 0 {
		return domain.Analysis{}, domain.ErrNotFound
	}
	return as[0], nil
}

func (r *Repo) ListAnalyses(ctx context.Context, businessID string, pg domain.PageQuery) ([]domain.Analysis, error) {
	limit := pg.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, listAnalysesSQL, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

func (r *Repo) ListUnresolvedNegative(ctx context.Context, businessID string, limit int) ([]domain.Analysis, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, listUnresolvedNegativeSQL, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

func (r *Repo) ListRecentBySentiment(ctx context.Context, businessID string, s domain.Sentiment, limit int) ([]domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, listRecentBySentimentSQL, businessID, string(s), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

func (r *Repo) CountBySentiment(ctx context.Context, businessID string) (map[domain.Sentiment]int64, error) {
	rows, err := r.db.QueryContext(ctx, countBySentimentSQL, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[domain.Sentiment]int64{}
	for rows.Next() {
		var s string
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[domain.Sentiment(s)] = n
	}
	return out, rows.Err()
}

func (r *Repo) CountByCategory(ctx context.Context, businessID string) (map[domain.Category]int64, error) {
	rows, err := r.db.QueryContext(ctx, countByCategorySQL, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[domain.Category]int64{}
	for rows.Next() {
		var c string
		var n int64
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		out[domain.Category(c)] = n
	}
	return out, rows.Err()
}

func (r *Repo) ResolveAnalysis(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, resolveAnalysisSQL, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// also hit when the row exists but is already resolved; callers
		// treat resolve as idempotent, so probe existence before failing
		if _, gerr := r.GetAnalysis(ctx, id); gerr != nil {
			return domain.ErrNotFound
		}
	}
	return nil
}

func scanAnalyses(rows *sql.Rows) ([]domain.Analysis, error) {
	var out []domain.Analysis
	for rows.Next() {
		var a domain.Analysis
		var (
			userID, suggestions, genResp sql.NullString
			category, sentiment          string
			createdAt                    sql.NullTime
		)
		if err := rows.Scan(
			&a.ID,
			&a.ReviewID,
			&a.BusinessID,
			&userID,
			&a.Text,
			&category,
			&sentiment,
			&a.Summary,
			&suggestions,
			&genResp,
			&a.IsResolved,
			&createdAt,
		); err != nil {
			return nil, err
		}
		a.Category = domain.Category(category)
		a.Sentiment = domain.Sentiment(sentiment)
		if userID.Valid {
			s := userID.String
			a.UserID = &s
		}
		if suggestions.Valid {
			s := suggestions.String
			a.Suggestions = &s
		}
		if genResp.Valid {
			s := genResp.String
			a.GeneratedResponse = &s
		}
		if createdAt.Valid {
			a.CreatedAt = createdAt.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- tasks ----

func (r *Repo) CreateTask(ctx context.Context, t domain.Task) (int64, error) {
	var due any
	if t.DueDate != nil {
		due = *t.DueDate
	}
	res, err := r.db.ExecContext(ctx, insertTaskSQL,
		t.Title,
		t.Description,
		valInt64(t.AnalysisID),
		string(t.Priority),
		due,
		t.CreatedBy,
		t.BusinessID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) ListReviewTasks(ctx context.Context, businessID string, limit int) ([]domain.Task, error) {
	return r.listTasks(ctx, listReviewTasksSQL, businessID, limit)
}

func (r *Repo) ListOptimizationTasks(ctx context.Context, businessID string, limit int) ([]domain.Task, error) {
	return r.listTasks(ctx, listOptimizationTasksSQL, businessID, limit)
}

func (r *Repo) listTasks(ctx context.Context, query, businessID string, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, query, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		var t domain.Task
		var (
			analysisID sql.NullInt64
			priority   string
			dueDate    sql.NullTime
			createdAt  sql.NullTime
		)
		if err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&analysisID,
			&priority,
			&dueDate,
			&t.IsCompleted,
			&t.CreatedBy,
			&t.BusinessID,
			&createdAt,
		); err != nil {
			return nil, err
		}
		t.Priority = domain.Priority(priority)
		if analysisID.Valid {
			v := analysisID.Int64
			t.AnalysisID = &v
		}
		if dueDate.Valid {
			d := dueDate.Time
			t.DueDate = &d
		}
		if createdAt.Valid {
			t.CreatedAt = createdAt.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- jobs (scheduler-owned) ----

// jobScope maps the domain's nil-means-global business reference onto the
// non-NULL column the unique key needs.
func jobScope(businessID *string) string {
	if businessID == nil {
		return ""
	}
	return *businessID
}

func (r *Repo) UpsertJob(ctx context.Context, j domain.JobRecord) error {
	_, err := r.db.ExecContext(ctx, upsertJobSQL,
		j.Name, jobScope(j.BusinessID), j.Spec, j.NextRunAt)
	return err
}

func (r *Repo) DueJobs(ctx context.Context, now time.Time) ([]domain.JobRecord, error) {
	rows, err := r.db.QueryContext(ctx, dueJobsSQL, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobRecord
	for rows.Next() {
		var j domain.JobRecord
		var scope string
		var lastRun sql.NullTime
		if err := rows.Scan(&j.Name, &scope, &j.Spec, &j.NextRunAt, &lastRun); err != nil {
			return nil, err
		}
		if scope != "" {
			s := scope
			j.BusinessID = &s
		}
		if lastRun.Valid {
			t := lastRun.Time
			j.LastRunAt = &t
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *Repo) CompleteJobRun(ctx context.Context, name string, businessID *string, nextRun, ranAt time.Time) error {
	_, err := r.db.ExecContext(ctx, completeJobRunSQL, nextRun, ranAt, name, jobScope(businessID))
	return err
}

func (r *Repo) DeleteJobs(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, deleteJobsSQL, name)
	return err
}

// ---- events (outbox) ----

func (r *Repo) AppendEvent(ctx context.Context, e domain.Event) error {
	var payload any
	if len(e.Payload) > 0 {
		payload = string(e.Payload)
	}
	_, err := r.db.ExecContext(ctx, insertEventSQL, e.ID, e.Type, e.BusinessID, payload)
	return err
}

func (r *Repo) UnconsumedEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, unconsumedEventsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		var createdAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.Type, &e.BusinessID, &payload, &createdAt); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = []byte(payload.String)
		}
		if createdAt.Valid {
			e.CreatedAt = createdAt.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) MarkEventConsumed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, markEventConsumedSQL, id)
	return err
}
