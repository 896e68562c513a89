package catalog

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

func NewSQLLite(dbpath string) (*SQLLiteCatalog, error) {
	rawDB, err := sql.Open("sqlite3", dbpath)
	return &SQLLiteCatalog{rawDB: rawDB}, err
}

type SQLLiteCatalog struct {
	rawDB *sql.DB
}

func (c *SQLLiteCatalog) runStatement(sql string) (sql.Result, error) {
	statement, err := c.rawDB.Prepare(sql)
	if err != nil {
		return nil, err
	}
	result, err := statement.Exec()
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *SQLLiteCatalog) Init() (err error) {
	_, err = c.runStatement(
		"CREATE TABLE IF NOT EXISTS runs (" +
			"id INTEGER PRIMARY KEY AUTOINCREMENT, " +
			"kind TEXT, " +
			"snapshot TEXT, " +
			"stage TEXT, " +
			"status TEXT, " +
			"error TEXT, " +
			"started INTEGER, " +
			"finished INTEGER" +
			")")
	if err != nil {
		return err
	}
	log.Debug().Msg("created runs table")
	return nil
}

func (c *SQLLiteCatalog) StartRun(kind string, snapshot string) (int64, error) {
	result, err := c.rawDB.Exec("INSERT INTO runs (kind, snapshot, stage, status, error, started, finished) VALUES(?, ?, ?, ?, ?, ?, ?)",
		kind, snapshot, "", StatusRunning, "", time.Now().Unix(), 0)
	if err != nil {
		return -1, err
	}
	return result.LastInsertId()
}

func (c *SQLLiteCatalog) FinishRun(id int64, stage string, status string, errText string) error {
	_, err := c.rawDB.Exec("UPDATE runs SET stage=?, status=?, error=?, finished=? WHERE id=?",
		stage, status, errText, time.Now().Unix(), id)
	return err
}

func (c *SQLLiteCatalog) Runs() ([]*Run, error) {
	rows, err := c.rawDB.Query("SELECT id, kind, snapshot, stage, status, error, started, finished FROM runs ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(&run.ID, &run.Kind, &run.Snapshot, &run.Stage, &run.Status, &run.Error, &run.StartedAt, &run.FinishedAt)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
