package storage

import (
	"database/sql"
	"fmt"

	"ewintr.nl/tubedigest/model"
	_ "github.com/lib/pq"
)

type PostgresInfo struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// Postgres keeps both ledgers in two tables. The whole ledger is replaced on
// save, which matches the single writer, save-once-per-run model.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(info PostgresInfo) (*Postgres, error) {
	db, err := sql.Open("postgres", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		info.Host, info.Port, info.User, info.Password, info.Database))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	p := &Postgres{db: db}
	if err := p.migrate(pgMigration); err != nil {
		return nil, err
	}

	return p, nil
}

var pgMigration = []string{
	`CREATE TABLE seen_video (
    channel_id VARCHAR(255) NOT NULL,
    video_id VARCHAR(255) NOT NULL,
    PRIMARY KEY (channel_id, video_id)
)`,
	`CREATE TABLE pending_job (
    video_id VARCHAR(255) PRIMARY KEY,
    video_url VARCHAR(255) NOT NULL,
    video_title VARCHAR(255) NOT NULL,
    channel_name VARCHAR(255) NOT NULL,
    published_at TIMESTAMPTZ NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMPTZ NOT NULL
)`,
}

func (p *Postgres) LoadSeen() (model.SeenSet, error) {
	rows, err := p.db.Query(`SELECT channel_id, video_id FROM seen_video`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := model.NewSeenSet()
	for rows.Next() {
		var channelID, videoID string
		if err := rows.Scan(&channelID, &videoID); err != nil {
			return nil, err
		}
		seen.Add(model.YoutubeChannelID(channelID), model.YoutubeVideoID(videoID))
	}

	return seen, rows.Err()
}

func (p *Postgres) SaveSeen(seen model.SeenSet) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM seen_video`); err != nil {
		return err
	}
	for channelID, videoIDs := range seen {
		for _, videoID := range videoIDs {
			if _, err := tx.Exec(`INSERT INTO seen_video (channel_id, video_id) VALUES ($1, $2)`,
				string(channelID), string(videoID)); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (p *Postgres) LoadPending() (model.PendingSet, error) {
	rows, err := p.db.Query(`SELECT video_id, video_url, video_title, channel_name, published_at, description, submitted_at
FROM pending_job`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := model.NewPendingSet()
	for rows.Next() {
		var videoID string
		var job model.PendingJob
		if err := rows.Scan(&videoID, &job.VideoURL, &job.VideoTitle, &job.ChannelName,
			&job.PublishedAt, &job.Description, &job.SubmittedAt); err != nil {
			return nil, err
		}
		pending[model.YoutubeVideoID(videoID)] = job
	}

	return pending, rows.Err()
}

func (p *Postgres) SavePending(pending model.PendingSet) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pending_job`); err != nil {
		return err
	}
	for videoID, job := range pending {
		if _, err := tx.Exec(`INSERT INTO pending_job
(video_id, video_url, video_title, channel_name, published_at, description, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			string(videoID), job.VideoURL, job.VideoTitle, job.ChannelName,
			job.PublishedAt, job.Description, job.SubmittedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *Postgres) migrate(wanted []string) error {
	query := `CREATE TABLE IF NOT EXISTS migration
("id" SERIAL PRIMARY KEY, "query" TEXT)`
	if _, err := p.db.Exec(query); err != nil {
		return err
	}

	// find existing
	rows, err := p.db.Query(`SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return err
	}

	existing := []string{}
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			return err
		}
		existing = append(existing, query)
	}
	rows.Close()

	// compare
	missing, err := compareMigrations(wanted, existing)
	if err != nil {
		return err
	}

	// execute missing
	for _, query := range missing {
		if _, err := p.db.Exec(query); err != nil {
			return err
		}

		// register
		if _, err := p.db.Exec(`
INSERT INTO migration
(query) VALUES ($1)
`, query); err != nil {
			return err
		}
	}

	return nil
}

func compareMigrations(wanted, existing []string) ([]string, error) {
	needed := []string{}
	if len(wanted) < len(existing) {
		return []string{}, fmt.Errorf("not enough migrations")
	}

	for i, want := range wanted {
		switch {
		case i >= len(existing):
			needed = append(needed, want)
		case want == existing[i]:
			// do nothing
		case want != existing[i]:
			return []string{}, fmt.Errorf("incompatible migration: %v", want)
		}
	}

	return needed, nil
}
