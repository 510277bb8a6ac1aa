package sqllite

// BatchResultRow is a persisted batch outcome.
type BatchResultRow struct {
	RunID      string `db:"run_id"`
	BatchNo    int    `db:"batch_no"`
	BatchCount int    `db:"batch_count"`
	StartIdx   int    `db:"start_idx"`
	Size       int    `db:"size"`
	Processed  int    `db:"processed"`
	Failed     int    `db:"failed"`
	ElapsedMs  int64  `db:"elapsed_ms"`
	Error      string `db:"error"`
	CreatedAt  string `db:"created_at"`
}

// ElementRow is a persisted input element.
type ElementRow struct {
	ElementKey string `db:"element_key"`
	RunID      string `db:"run_id"`
	BatchNo    int    `db:"batch_no"`
	Payload    string `db:"payload"`
	CreatedAt  string `db:"created_at"`
}

var BatchResultSchema = `
	CREATE TABLE IF NOT EXISTS batch_result (
	run_id      TEXT    NOT NULL,
	batch_no    INTEGER NOT NULL,
	batch_count INTEGER NOT NULL,
	start_idx   INTEGER NOT NULL,
	size        INTEGER NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	elapsed_ms  INTEGER NOT NULL DEFAULT 0,
	error       TEXT    NOT NULL DEFAULT '',
	created_at  TEXT    NOT NULL DEFAULT (CURRENT_TIMESTAMP),
	PRIMARY KEY (run_id, batch_no)
	);
`

var ElementSchema = `
	CREATE TABLE IF NOT EXISTS element_row (
	element_key TEXT    PRIMARY KEY,
	run_id      TEXT    NOT NULL,
	batch_no    INTEGER NOT NULL,
	payload     TEXT    NOT NULL DEFAULT '',
	created_at  TEXT    NOT NULL DEFAULT (CURRENT_TIMESTAMP)
	);
`
