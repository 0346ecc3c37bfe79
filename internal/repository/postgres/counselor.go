package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/campuswell/counseling-api/internal/model"
	"github.com/campuswell/counseling-api/internal/repository"
)

func (r *counselorRepository) Get(ctx context.Context, id uuid.UUID) (*model.CounselorSchedule, error) {
	query := `
		SELECT id, name, work_start, work_end, slot_minutes, day_off,
			   blackout_dates, active, created_at, updated_at
		FROM counselors
		WHERE id = $1
	`
	var counselor model.CounselorSchedule
	err := r.db.GetContext(ctx, &counselor, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get counselor: %w", err)
	}
	return &counselor, nil
}
