package mysql

// Note: `text` is reserved; keep it quoted everywhere.

const insertReviewSQL = "INSERT INTO reviews\n" +
	"  (business_id, user_id, author_name, `text`, category, is_analyzed, source, external_id, rating, lang, created_at)\n" +
	"VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))"

// Same row shape, but duplicates on (business_id, external_id) become a
// silent no-op. RowsAffected tells the caller whether anything was added.
const insertReviewIgnoreSQL = "INSERT IGNORE INTO reviews\n" +
	"  (business_id, user_id, author_name, `text`, category, is_analyzed, source, external_id, rating, lang, created_at)\n" +
	"VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))"

const markAnalyzedSQL = `
UPDATE reviews SET is_analyzed = 1 WHERE id = ?
`

const selectReviewColumns = "id, business_id, user_id, author_name, `text`, category, is_analyzed, source, external_id, rating, lang, created_at"

const listReviewsSQL = "SELECT " + selectReviewColumns + `
FROM reviews
WHERE business_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`

const findUnanalyzedSQL = "SELECT " + selectReviewColumns + `
FROM reviews
WHERE is_analyzed = 0 AND (? = '' OR business_id = ?)
ORDER BY id
LIMIT ?`

const latestExternalReviewTimeSQL = `
SELECT MAX(created_at) FROM reviews WHERE business_id = ? AND source = 'google'
`

const insertAnalysisSQL = "INSERT INTO analyses\n" +
	"  (review_id, business_id, user_id, `text`, category, sentiment, summary, suggestions, generated_response, is_resolved)\n" +
	"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)"

const selectAnalysisColumns = "id, review_id, business_id, user_id, `text`, category, sentiment, summary, suggestions, generated_response, is_resolved, created_at"

const getAnalysisSQL = "SELECT " + selectAnalysisColumns + " FROM analyses WHERE id = ?"

const getAnalysisByReviewSQL = "SELECT " + selectAnalysisColumns + " FROM analyses WHERE review_id = ?"

const listAnalysesSQL = "SELECT " + selectAnalysisColumns + `
FROM analyses
WHERE business_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`

const listUnresolvedNegativeSQL = "SELECT " + selectAnalysisColumns + `
FROM analyses
WHERE business_id = ? AND sentiment = 'negative' AND is_resolved = 0
ORDER BY created_at DESC, id DESC
LIMIT ?`

const listRecentBySentimentSQL = "SELECT " + selectAnalysisColumns + `
FROM analyses
WHERE business_id = ? AND sentiment = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`

const countBySentimentSQL = `
SELECT sentiment, COUNT(*) FROM analyses WHERE business_id = ? GROUP BY sentiment
`

const countByCategorySQL = `
SELECT category, COUNT(*) FROM analyses WHERE business_id = ? GROUP BY category
`

const resolveAnalysisSQL = `
UPDATE analyses SET is_resolved = 1 WHERE id = ?
`

const insertTaskSQL = `
INSERT INTO tasks
  (title, description, analysis_id, priority, due_date, is_completed, created_by, business_id)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)
`

const selectTaskColumns = "id, title, description, analysis_id, priority, due_date, is_completed, created_by, business_id, created_at"

const listReviewTasksSQL = "SELECT " + selectTaskColumns + `
FROM tasks
WHERE business_id = ? AND analysis_id IS NOT NULL
ORDER BY created_at DESC, id DESC
LIMIT ?`

const listOptimizationTasksSQL = "SELECT " + selectTaskColumns + `
FROM tasks
WHERE business_id = ? AND analysis_id IS NULL
ORDER BY FIELD(priority, 'high', 'medium', 'low'), created_at DESC
LIMIT ?`

// Jobs: business_id '' means global scope. The empty string (instead of
// NULL) keeps the UNIQUE(name, business_id) key honest under MySQL, which
// would otherwise admit unlimited NULL duplicates.
const upsertJobSQL = `
INSERT INTO jobs (name, business_id, spec, next_run_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  spec        = VALUES(spec),
  next_run_at = VALUES(next_run_at)
`

const dueJobsSQL = `
SELECT name, business_id, spec, next_run_at, last_run_at
FROM jobs
WHERE next_run_at <= ?
ORDER BY next_run_at, name
`

const completeJobRunSQL = `
UPDATE jobs SET next_run_at = ?, last_run_at = ? WHERE name = ? AND business_id = ?
`

const deleteJobsSQL = `
DELETE FROM jobs WHERE name = ?
`

const insertEventSQL = `
INSERT INTO events (id, type, business_id, payload)
VALUES (?, ?, ?, ?)
`

const unconsumedEventsSQL = `
SELECT id, type, business_id, payload, created_at
FROM events
WHERE consumed_at IS NULL
ORDER BY created_at, id
LIMIT ?`

const markEventConsumedSQL = `
UPDATE events SET consumed_at = CURRENT_TIMESTAMP WHERE id = ? AND consumed_at IS NULL
`
