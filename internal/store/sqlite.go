package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type playModel struct {
	PuzzleID    string `gorm:"column:puzzle_id;primaryKey"`
	Participant string `gorm:"column:participant;primaryKey;index"`
	Attempts    *int   `gorm:"column:attempts"`
	Points      int    `gorm:"column:points;not null"`
}

func (playModel) TableName() string { return "plays" }

type ratingModel struct {
	Participant string  `gorm:"column:participant;primaryKey"`
	Rating      float64 `gorm:"column:rating;not null;default:1500"`
}

func (ratingModel) TableName() string { return "ratings" }

// SQLiteRepository stores state in a single local database file.
type SQLiteRepository struct {
	db *gorm.DB
}

func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("DB_FILE is required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// one connection: SQLite serializes writers and ":memory:" is per connection
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&playModel{}, &ratingModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLiteRepository) FetchRating(ctx context.Context, participant string) (float64, error) {
	var rows []ratingModel
	if err := r.db.WithContext(ctx).Where("participant = ?", participant).Limit(1).Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("select rating: %w", err)
	}
	if len(rows) == 0 {
		return domain.DefaultRating, nil
	}
	return rows[0].Rating, nil
}

func (r *SQLiteRepository) FetchPlayCount(ctx context.Context, participant, excludePuzzle string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&playModel{}).
		Where("participant = ? AND puzzle_id <> ?", participant, excludePuzzle).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count plays: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) Snapshot(ctx context.Context, puzzleID string, participants []string) (map[string]domain.Prior, error) {
	var out map[string]domain.Prior
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = sqliteSnapshot(tx, puzzleID, participants)
		return err
	})
	return out, err
}

func sqliteSnapshot(tx *gorm.DB, puzzleID string, participants []string) (map[string]domain.Prior, error) {
	out := make(map[string]domain.Prior, len(participants))
	for _, p := range participants {
		out[p] = domain.Prior{Rating: domain.DefaultRating}
	}
	if len(participants) == 0 {
		return out, nil
	}

	var ratings []ratingModel
	if err := tx.Where("participant IN ?", participants).Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("select ratings: %w", err)
	}
	for _, rm := range ratings {
		prior := out[rm.Participant]
		prior.Rating = rm.Rating
		out[rm.Participant] = prior
	}

	var counts []struct {
		Participant string
		N           int
	}
	err := tx.Model(&playModel{}).
		Select("participant, COUNT(*) AS n").
		Where("participant IN ? AND puzzle_id <> ?", participants, puzzleID).
		Group("participant").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count plays: %w", err)
	}
	for _, c := range counts {
		prior := out[c.Participant]
		prior.Games = c.N
		out[c.Participant] = prior
	}
	return out, nil
}

func (r *SQLiteRepository) Commit(ctx context.Context, c *domain.PuzzleCommit) error {
	if c == nil || len(c.Rows) == 0 {
		return nil
	}
	plays := make([]playModel, 0, len(c.Rows))
	ratings := make([]ratingModel, 0, len(c.Rows))
	for _, row := range c.Rows {
		pm := playModel{PuzzleID: c.PuzzleID, Participant: row.Participant, Points: row.Points}
		if !row.Attempts.IsFailed() {
			a := int(row.Attempts)
			pm.Attempts = &a
		}
		plays = append(plays, pm)
		ratings = append(ratings, ratingModel{Participant: row.Participant, Rating: row.Rating})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := sqliteSnapshot(tx, c.PuzzleID, participantsOf(c))
		if err != nil {
			return err
		}
		if err := checkSnapshot(current, c.Before); err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "puzzle_id"}, {Name: "participant"}},
			DoUpdates: clause.AssignmentColumns([]string{"attempts", "points"}),
		}).Create(&plays).Error; err != nil {
			return fmt.Errorf("upsert plays: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "participant"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating"}),
		}).Create(&ratings).Error; err != nil {
			return fmt.Errorf("upsert ratings: %w", err)
		}
		return nil
	})
}

func (r *SQLiteRepository) Stats(ctx context.Context) ([]domain.Stats, error) {
	const query = `
		SELECT
			r.participant AS participant,
			r.rating AS rating,
			COUNT(p.puzzle_id) AS games,
			COUNT(p.attempts) AS wins,
			ROUND(AVG(p.attempts), 2) AS avg_attempts,
			COALESCE(SUM(p.points), 0) AS total_points
		FROM ratings r
		LEFT JOIN plays p ON p.participant = r.participant
		GROUP BY r.participant, r.rating
		ORDER BY r.rating DESC, r.participant ASC`

	var rows []struct {
		Participant string
		Rating      float64
		Games       int
		Wins        int
		AvgAttempts sql.NullFloat64
		TotalPoints int
	}
	if err := r.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}
	out := make([]domain.Stats, 0, len(rows))
	for _, row := range rows {
		s := domain.Stats{
			Participant: row.Participant,
			Rating:      row.Rating,
			Games:       row.Games,
			Wins:        row.Wins,
			TotalPoints: row.TotalPoints,
		}
		if row.AvgAttempts.Valid {
			v := row.AvgAttempts.Float64
			s.AvgAttempts = &v
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *SQLiteRepository) Reset(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM plays").Error; err != nil {
			return fmt.Errorf("delete plays: %w", err)
		}
		if err := tx.Exec("DELETE FROM ratings").Error; err != nil {
			return fmt.Errorf("delete ratings: %w", err)
		}
		return nil
	})
}
